package eventconsumers

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"github.com/tradelab/discord-trading/src/eventmodels"
	pubsub "github.com/tradelab/discord-trading/src/eventpubsub"
)

type journalRecord struct {
	Timestamp time.Time `csv:"timestamp"`
	EventID   string    `csv:"event_id"`
	EventType string    `csv:"event_type"`
	Symbol    string    `csv:"symbol"`
	Outcome   string    `csv:"outcome"`
	Detail    string    `csv:"detail"`
}

// JournalWorker keeps an audit trail of the session: every event is logged as
// it happens and recorded, and Flush writes the CSV journal plus a console
// summary on shutdown.
type JournalWorker struct {
	mu      sync.Mutex
	csvPath string
	records []journalRecord
}

func NewJournalWorker(bus *pubsub.Bus, csvPath string) *JournalWorker {
	w := &JournalWorker{
		csvPath: csvPath,
	}

	pubsub.Subscribe(bus, w.handleAlertEvent)
	pubsub.Subscribe(bus, w.handleSuppressedAlertEvent)
	pubsub.Subscribe(bus, w.handleRiskEvent)
	pubsub.Subscribe(bus, w.handleOrderEvent)

	return w
}

func (w *JournalWorker) append(record journalRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.records = append(w.records, record)
}

func (w *JournalWorker) handleAlertEvent(event *eventmodels.AlertEvent) {
	log.Infof("JournalWorker: alert %v", event.Signal)

	w.append(journalRecord{
		Timestamp: event.Timestamp,
		EventID:   event.EventID.String(),
		EventType: "alert",
		Symbol:    event.Signal.Symbol,
		Outcome:   "received",
		Detail:    event.RawMessage,
	})
}

func (w *JournalWorker) handleSuppressedAlertEvent(event *eventmodels.SuppressedAlertEvent) {
	log.Warnf("JournalWorker: suppressed alert for %s: %s", event.Signal.Symbol, event.Reason)

	w.append(journalRecord{
		Timestamp: event.Timestamp,
		EventID:   event.EventID.String(),
		EventType: "alert",
		Symbol:    event.Signal.Symbol,
		Outcome:   "suppressed",
		Detail:    event.Reason,
	})
}

func (w *JournalWorker) handleRiskEvent(event *eventmodels.RiskEvent) {
	outcome := "rejected"
	if event.Accepted {
		outcome = "accepted"
	}

	log.Infof("JournalWorker: risk decision for %s: %s (%s)", event.Signal.Symbol, outcome, event.Reason)

	w.append(journalRecord{
		Timestamp: event.Timestamp,
		EventID:   event.EventID.String(),
		EventType: "risk",
		Symbol:    event.Signal.Symbol,
		Outcome:   outcome,
		Detail:    event.Reason,
	})
}

func (w *JournalWorker) handleOrderEvent(event *eventmodels.OrderEvent) {
	record := journalRecord{
		Timestamp: event.Timestamp,
		EventID:   event.EventID.String(),
		EventType: "order",
		Symbol:    event.Signal.Symbol,
	}

	if event.Failed() {
		log.Errorf("JournalWorker: order failed for %s: %v", event.Signal.Symbol, event.Err)
		record.Outcome = "failed"
		record.Detail = event.Err.Error()
	} else {
		log.Infof("JournalWorker: order submitted for %s", event.Signal.Symbol)
		record.Outcome = "submitted"
		record.Detail = fmt.Sprintf("%v", event.Response)
	}

	w.append(record)
}

// Flush writes the session journal to the configured CSV path and prints a
// summary table of event outcomes.
func (w *JournalWorker) Flush() error {
	w.mu.Lock()
	records := make([]journalRecord, len(w.records))
	copy(records, w.records)
	w.mu.Unlock()

	if len(records) == 0 {
		log.Info("JournalWorker.Flush: no events recorded")
		return nil
	}

	file, err := os.Create(w.csvPath)
	if err != nil {
		return fmt.Errorf("JournalWorker.Flush: failed to create %s: %w", w.csvPath, err)
	}

	defer file.Close()

	if err := gocsv.MarshalFile(&records, file); err != nil {
		return fmt.Errorf("JournalWorker.Flush: failed to write journal: %w", err)
	}

	counts := make(map[string]int)
	for _, record := range records {
		counts[fmt.Sprintf("%s/%s", record.EventType, record.Outcome)]++
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Event", "Count"})

	for _, key := range sortedKeys(counts) {
		table.Append([]string{key, fmt.Sprintf("%d", counts[key])})
	}

	table.Render()

	log.Infof("JournalWorker.Flush: wrote %d events to %s", len(records), w.csvPath)

	return nil
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
