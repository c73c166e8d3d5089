package handler

import (
	"math/rand"
	"time"

	"udptracker/internal/swarm"
	"udptracker/internal/tracelog"
	"udptracker/internal/wire"
)

// Worker drains one shard's inbound request channel in batches, mutates its
// swarm.HandlerData under that shard's mutex, and publishes responses on
// the outbound channel. One Worker owns exactly one HandlerData.
type Worker struct {
	ID       int
	Data     *swarm.HandlerData
	Config   Config
	Requests <-chan Job
	Outbound chan<- Outbound

	peerRand *rand.Rand
}

// NewWorker constructs a Worker with its own private peer-sampling RNG.
// Connection IDs are drawn directly from the OS CSPRNG per request (see
// rng.go) rather than from a worker-owned generator, since they must stay
// cryptographically unpredictable.
func NewWorker(id int, data *swarm.HandlerData, cfg Config, requests <-chan Job, outbound chan<- Outbound) *Worker {
	return &Worker{
		ID:       id,
		Data:     data,
		Config:   cfg,
		Requests: requests,
		Outbound: outbound,
		peerRand: newPeerRand(),
	}
}

// Run collects and processes batches until Requests is closed.
func (w *Worker) Run() {
	var connects []connectJob
	var announces []announceJob
	var scrapes []scrapeJob

	for {
		connects = connects[:0]
		announces = announces[:0]
		scrapes = scrapes[:0]

		job, ok := <-w.Requests
		if !ok {
			return
		}
		classify(job, &connects, &announces, &scrapes)

		var locked bool

		for i := 1; i < w.Config.MaxRequestsPerIter; i++ {
			select {
			case job, ok := <-w.Requests:
				if !ok {
					// Channel closed mid-batch: process what we have,
					// then terminate after flushing.
					w.processAndFlush(connects, announces, scrapes)
					return
				}
				classify(job, &connects, &announces, &scrapes)

			case <-time.After(w.Config.ChannelRecvTimeout):
				if w.Data.TryLock() {
					locked = true
				} else {
					continue
				}
			}

			if locked {
				break
			}
		}

		if !locked {
			w.Data.Lock()
		}

		responses := w.process(connects, announces, scrapes)
		w.Data.Unlock()

		w.flush(responses)
	}
}

func classify(job Job, connects *[]connectJob, announces *[]announceJob, scrapes *[]scrapeJob) {
	switch job.Request.Kind {
	case wire.KindConnect:
		*connects = append(*connects, connectJob{req: job.Request.Connect, addr: job.Addr})
	case wire.KindAnnounce:
		*announces = append(*announces, announceJob{req: job.Request.Announce, addr: job.Addr})
	case wire.KindScrape:
		*scrapes = append(*scrapes, scrapeJob{req: job.Request.Scrape, addr: job.Addr})
	}
}

// process drains the three per-kind buffers against the already-locked
// shard, in the fixed order Connect -> Announce -> Scrape, and returns the
// accumulated responses.
func (w *Worker) process(connects []connectJob, announces []announceJob, scrapes []scrapeJob) []Outbound {
	now := time.Now()

	var responses []Outbound
	responses = handleConnect(w.Data, now, connects, responses)
	responses = handleAnnounce(w.Data, w.Config, w.peerRand, now, announces, responses)
	responses = handleScrape(w.Data, scrapes, responses)

	return responses
}

// processAndFlush is used only on the closed-channel-mid-batch path, where
// the shard must still be locked before mutating it.
func (w *Worker) processAndFlush(connects []connectJob, announces []announceJob, scrapes []scrapeJob) {
	w.Data.Lock()
	responses := w.process(connects, announces, scrapes)
	w.Data.Unlock()
	w.flush(responses)
}

// flush publishes responses to the outbound channel. A send failure (the
// outbound channel having been closed out from under us during shutdown) is
// logged and that response is dropped; the worker keeps running.
func (w *Worker) flush(responses []Outbound) {
	for _, r := range responses {
		if !w.trySend(r) {
			tracelog.Error("handler: failed to send response", tracelog.Fields{"worker": w.ID})
		}
	}
}

func (w *Worker) trySend(r Outbound) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	w.Outbound <- r
	return true
}
