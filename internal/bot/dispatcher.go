package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const queueSize = 64

// dispatcher fans updates out to a fixed set of workers. Updates are sharded
// by sender, so one user's updates are handled in order by a single worker.
type dispatcher struct {
	queues []chan tgbotapi.Update
	wg     sync.WaitGroup
}

func newDispatcher(workers int, handle func(tgbotapi.Update)) *dispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &dispatcher{queues: make([]chan tgbotapi.Update, workers)}
	for i := range d.queues {
		q := make(chan tgbotapi.Update, queueSize)
		d.queues[i] = q
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for update := range q {
				handle(update)
			}
		}()
	}
	return d
}

func senderOf(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}

func (d *dispatcher) dispatch(update tgbotapi.Update) {
	id := senderOf(update)
	if id < 0 {
		id = -id
	}
	d.queues[id%int64(len(d.queues))] <- update
}

// close stops accepting updates and waits for the queued ones.
func (d *dispatcher) close() {
	for _, q := range d.queues {
		close(q)
	}
	d.wg.Wait()
}
