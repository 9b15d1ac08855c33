package federation

import (
	"log"
	"sync"
)

// inboxTask pairs a verified event with the local actor whose inbox
// received it, the unit of work an apply goroutine drains.
type inboxTask struct {
	event         *VerifiedInboxEvent
	localActorURI string
}

// DeliveryWorker fans the apply phase of inbox processing out across
// per-signer-domain FIFO queues (spec.md §5): events from one signer apply
// in arrival order, events from distinct signers interleave freely. One
// buffered channel and one drain goroutine exist per domain, created lazily
// on first use and kept for the process lifetime.
type DeliveryWorker struct {
	dispatcher *InboxDispatcher
	queueSize  int

	mu     sync.Mutex
	queues sync.Map // domain string -> chan inboxTask
}

// NewDeliveryWorker builds a worker pool applying verified events through
// dispatcher. queueSize bounds each domain's backlog before Enqueue blocks;
// 0 selects a default.
func NewDeliveryWorker(dispatcher *InboxDispatcher, queueSize int) *DeliveryWorker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &DeliveryWorker{dispatcher: dispatcher, queueSize: queueSize}
}

// Enqueue schedules ev for asynchronous apply against localActorURI. Inbox
// handlers call this after verification and return 202 without waiting for
// the apply to run (spec.md §5 liveness requirement).
func (w *DeliveryWorker) Enqueue(ev *VerifiedInboxEvent, localActorURI string) {
	w.queueFor(ev.SignerDomain) <- inboxTask{event: ev, localActorURI: localActorURI}
}

func (w *DeliveryWorker) queueFor(domain string) chan inboxTask {
	if v, ok := w.queues.Load(domain); ok {
		return v.(chan inboxTask)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if v, ok := w.queues.Load(domain); ok {
		return v.(chan inboxTask)
	}
	ch := make(chan inboxTask, w.queueSize)
	w.queues.Store(domain, ch)
	go w.drain(domain, ch)
	return ch
}

func (w *DeliveryWorker) drain(domain string, ch chan inboxTask) {
	for task := range ch {
		if err := w.dispatcher.Apply(task.event, task.localActorURI); err != nil {
			log.Printf("federation: apply failed for signer %s: %v", domain, err)
		}
	}
}
