package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/voxelcore/internal/eventbus"
	nats "github.com/nats-io/nats.go"
)

const (
	defaultNATSURL = "nats://127.0.0.1:4222"
	timeFormat     = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNATSURL, "NATS server URL")
		stream     = flag.String("stream", "VOXEL", "JetStream stream")
		command    = flag.String("cmd", "tail", "Command: tail, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		since      = flag.String("since", "1h", "Time duration since now (e.g., 1h, 30m) or RFC3339 time")
		limit      = flag.Int("limit", 100, "Maximum number of events")
		follow     = flag.Bool("follow", false, "Follow new events (like tail -f)")
	)
	flag.Parse()

	start, err := parseSinceTime(*since, time.Now())
	if err != nil {
		log.Fatalf("❌ Invalid since: %v", err)
	}

	// Подключаемся к NATS
	nc, err := nats.Connect(*natsURL, nats.Name("voxelcore-event-cli"))
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		log.Fatalf("❌ JetStream unavailable: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := &TailOptions{
		Stream:     *stream,
		EventTypes: parseStringList(*eventTypes),
		Since:      start,
		Limit:      *limit,
		Follow:     *follow,
	}

	switch *command {
	case "tail":
		if err := tailEvents(ctx, js, opts, os.Stdout); err != nil {
			log.Fatalf("❌ Tail failed: %v", err)
		}
	case "stats":
		opts.Follow = false
		if err := showStats(ctx, js, opts, os.Stdout); err != nil {
			log.Fatalf("❌ Stats failed: %v", err)
		}
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: tail, stats")
		os.Exit(1)
	}
}

type TailOptions struct {
	Stream     string
	EventTypes []string
	Since      time.Time
	Limit      int
	Follow     bool
}

// subject возвращает subject подписки: один тип или все события мира
func (o *TailOptions) subject() string {
	if len(o.EventTypes) == 1 {
		return eventbus.Subject(o.EventTypes[0])
	}
	return eventbus.SubjectPrefix + ".*"
}

// readEvents читает события из стрима начиная с opts.Since через эфемерный
// упорядоченный consumer и передаёт их fn. Без Follow завершает работу,
// когда стрим прочитан до конца или достигнут лимит.
func readEvents(ctx context.Context, js nats.JetStreamContext, opts *TailOptions, fn func(*eventbus.Envelope)) (int, error) {
	sub, err := js.SubscribeSync(opts.subject(),
		nats.BindStream(opts.Stream),
		nats.OrderedConsumer(),
		nats.StartTime(opts.Since),
	)
	if err != nil {
		return 0, fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	filter := eventbus.Filter{Types: opts.EventTypes}
	count := 0
	for opts.Limit <= 0 || count < opts.Limit {
		wait := time.Second
		if opts.Follow {
			wait = time.Minute
		}
		msgCtx, cancel := context.WithTimeout(ctx, wait)
		msg, err := sub.NextMsgWithContext(msgCtx)
		cancel()
		switch {
		case ctx.Err() != nil:
			return count, nil
		case err != nil && opts.Follow:
			continue
		case err != nil:
			// Новых сообщений нет - стрим прочитан
			return count, nil
		}

		ev, ok := decodeEnvelope(msg.Data, filter)
		if !ok {
			continue
		}
		fn(ev)
		count++
	}
	return count, nil
}

func decodeEnvelope(data []byte, f eventbus.Filter) (*eventbus.Envelope, bool) {
	var ev eventbus.Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, false
	}
	if len(f.Types) > 0 && !contains(f.Types, ev.EventType) {
		return nil, false
	}
	return &ev, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// tailEvents выводит события в реальном времени
func tailEvents(ctx context.Context, js nats.JetStreamContext, opts *TailOptions, out io.Writer) error {
	fmt.Fprintf(out, "🎬 Tailing events (limit: %d, follow: %v)\n", opts.Limit, opts.Follow)

	n, err := readEvents(ctx, js, opts, func(ev *eventbus.Envelope) {
		printEvent(out, ev)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n📊 Total events: %d\n", n)
	return nil
}

// showStats выводит число событий по типам
func showStats(ctx context.Context, js nats.JetStreamContext, opts *TailOptions, out io.Writer) error {
	fmt.Fprintln(out, "📊 Event statistics")

	counts := make(map[string]int)
	total, err := readEvents(ctx, js, opts, func(ev *eventbus.Envelope) {
		counts[ev.EventType]++
	})
	if err != nil {
		return err
	}
	printStats(out, opts.Since, total, counts)
	return nil
}

func printStats(out io.Writer, since time.Time, total int, counts map[string]int) {
	fmt.Fprintf(out, "Since: %s\n", since.UTC().Format(timeFormat))
	fmt.Fprintf(out, "Total events: %d\n", total)
	fmt.Fprintln(out, "\nBy event type:")

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(out, "  %s: %d events\n", t, counts[t])
	}
}

// printEvent выводит событие в читаемом формате
func printEvent(out io.Writer, ev *eventbus.Envelope) {
	fmt.Fprintf(out, "[%s] %s [%s] %s\n",
		ev.Timestamp.Format("15:04:05"),
		ev.Source,
		ev.EventType,
		ev.ID)

	// Добавляем детали в зависимости от типа события
	switch ev.EventType {
	case eventbus.TypeVoxelChanged:
		var e eventbus.VoxelChanged
		if ev.Decode(&e) == nil {
			fmt.Fprintf(out, "  Chunk: %s Local: %s Solid: %v Dirty: %d\n", e.Chunk, e.Local, e.Solid, e.Dirty)
		}
	case eventbus.TypeCycleCompleted:
		var e eventbus.CycleCompleted
		if ev.Decode(&e) == nil {
			fmt.Fprintf(out, "  Chunks: %d Attachments: %d Took: %s Cache: %d\n",
				e.ChunksMeshed, e.Attachments, time.Duration(e.DurationNs), e.CacheEntries)
		}
	case eventbus.TypeSimulationToggled:
		var e eventbus.SimulationToggled
		if ev.Decode(&e) == nil {
			fmt.Fprintf(out, "  State: %s\n", e.State)
		}
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseSinceTime парсит относительное время типа "1h", "30m" или абсолютное RFC3339
func parseSinceTime(since string, from time.Time) (time.Time, error) {
	if since == "" {
		return from, nil
	}

	duration, err := time.ParseDuration(since)
	if err != nil {
		// Пробуем парсить как абсолютное время
		return time.Parse(timeFormat, since)
	}

	return from.Add(-duration), nil
}
