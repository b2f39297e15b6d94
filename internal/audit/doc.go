// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

// Package audit records who changed what in the signage backend.
//
// The package has two halves:
//
//   - An event model and persistence stores (MemoryStore for tests and
//     development, DuckDBStore for production). A store is any type that can
//     persist a single event; the Sink interface is the minimal write port.
//
//   - An asynchronous write queue (Queue) that decouples the HTTP request
//     path from persistence latency. Producers call Enqueue, which appends to
//     a bounded in-memory buffer and returns immediately. A background ticker
//     drains the buffer in FIFO batches, persisting one event at a time. On
//     the first persistence error the failing event and the unattempted rest
//     of its batch are pushed back to the front of the buffer and the pass
//     aborts; the next tick retries, so a sink outage degrades to backlog
//     growth (and eventually overflow drops) without touching request latency.
//
// Delivery is at-most-once and in-process only: events still buffered when
// the process exits are lost. That trade-off is intentional - the audit trail
// is best effort and must never break the primary request path.
//
// # Usage
//
//	store := audit.NewDuckDBStore(db)
//	queue := audit.NewQueue(store, audit.QueueConfig{
//	    Enabled:        true,
//	    Capacity:       1000,
//	    FlushBatchSize: 50,
//	    FlushInterval:  5 * time.Second,
//	})
//	defer queue.Stop(context.Background())
//
//	res := queue.Enqueue(&audit.Event{Action: "content.create", ...})
//	if !res.Accepted {
//	    // reason is "disabled" or "overflow"; callers decide whether to log
//	}
package audit
