// Command iblsim replays pyibl's "box game" example: virtual participants
// repeatedly choose whether to attack an opponent's position, learning
// both which position to target and whether a warning signal should deter
// them, across four signaling conditions. It exists to exercise the
// top-level Agent API end to end, not as a library consumer would import
// it — see github.com/DDM-Lab/go-ibl/internal/config for its own
// environment-driven configuration.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	ibl "github.com/DDM-Lab/go-ibl"
	"github.com/DDM-Lab/go-ibl/internal/config"
)

// condition is one of the box game's four signaling regimes. p is the
// probability a covered attack is warned; q is the probability an
// uncovered attack is (falsely) warned. Neither applies in "no signaling"
// (hasP is false), where the attack agent has no warning attribute at all.
type condition struct {
	name string
	p, q float64
	hasP bool
}

func conditions() []condition {
	return []condition{
		{name: "1 way", p: 1, q: 0.5, hasP: true},
		{name: "2 way (0.75)", p: 0.75, q: 0.375, hasP: true},
		{name: "2 way (0.5)", p: 0.5, q: 0.25, hasP: true},
		{name: "no signaling"},
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("iblsim starting", "rounds", cfg.Rounds, "participants", cfg.Participants, "noise", cfg.Noise, "decay", cfg.Decay)

	// A single bootstrap agent registers the global OTEL providers (if
	// configured); every simulation agent below picks them up for free via
	// telemetry.Tracer/Meter without re-registering exporters per
	// participant.
	bootstrap, err := ibl.New(ibl.WithTelemetry(cfg.OTELEndpoint, cfg.ServiceName), ibl.WithNoise(cfg.Noise))
	if err != nil {
		logger.Error("bootstrap agent", "error", err)
		return 1
	}
	defer func() { _ = bootstrap.Shutdown(context.Background()) }()

	logFile, err := os.Create("box-game-log.csv")
	if err != nil {
		logger.Error("create log file", "error", err)
		return 1
	}
	defer logFile.Close()

	w := csv.NewWriter(logFile)
	defer w.Flush()
	if err := w.Write([]string{"Condition", "Subject", "Trial", "Selected", "Warning", "Covered", "Action", "Outcome", "CumOutcome"}); err != nil {
		logger.Error("write csv header", "error", err)
		return 1
	}
	var writeMu sync.Mutex

	for _, c := range conditions() {
		successful, failed, withdrew, err := runCondition(ctx, c, cfg, w, &writeMu)
		if err != nil {
			logger.Error("condition failed", "condition", c.name, "error", err)
			return 1
		}
		total := float64(cfg.Participants * cfg.Rounds)
		logger.Info("condition complete", "condition", c.name,
			"successful_attack_rate", float64(successful)/total,
			"failed_attack_rate", float64(failed)/total,
			"withdrawal_rate", float64(withdrew)/total)
	}

	logger.Info("iblsim stopped")
	return 0
}

// runCondition simulates cfg.Participants independent subjects, each
// playing cfg.Rounds trials of the box game under c, concurrently.
func runCondition(ctx context.Context, c condition, cfg config.Config, w *csv.Writer, writeMu *sync.Mutex) (successful, failed, withdrew int64, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for p := 0; p < cfg.Participants; p++ {
		p := p
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			seed := cfg.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed + int64(p)))

			rows, s, f, wd, err := playParticipant(c, cfg, p, rng)
			if err != nil {
				return fmt.Errorf("participant %d: %w", p, err)
			}

			atomic.AddInt64(&successful, s)
			atomic.AddInt64(&failed, f)
			atomic.AddInt64(&withdrew, wd)

			writeMu.Lock()
			defer writeMu.Unlock()
			for _, row := range rows {
				if err := w.Write(row); err != nil {
					return fmt.Errorf("participant %d: write row: %w", p, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, 0, err
	}
	return successful, failed, withdrew, nil
}

// playParticipant runs one subject through cfg.Rounds trials, returning
// every CSV row it produced plus its outcome tallies.
func playParticipant(c condition, cfg config.Config, participant int, rng *rand.Rand) (rows [][]string, successful, failed, withdrew int64, err error) {
	selection, err := ibl.New(
		ibl.WithNoise(cfg.Noise),
		ibl.WithDecay(cfg.Decay),
		ibl.WithTemperature(1),
		ibl.WithRandSource(rng),
	)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("selection agent: %w", err)
	}

	attrs := []string{"attack"}
	if c.hasP {
		attrs = []string{"attack", "warning"}
	}
	attack, err := ibl.New(
		ibl.WithAttributes(attrs...),
		ibl.WithNoise(cfg.Noise),
		ibl.WithDecay(cfg.Decay),
		ibl.WithTemperature(1),
		ibl.WithRandSource(rng),
	)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("attack agent: %w", err)
	}

	if c.hasP {
		if err := attack.Populate([]ibl.Option{map[string]any{"attack": false, "warning": 0}, map[string]any{"attack": false, "warning": 1}}, 0); err != nil {
			return nil, 0, 0, 0, err
		}
	} else {
		if err := attack.Populate([]ibl.Option{map[string]any{"attack": false}}, 0); err != nil {
			return nil, 0, 0, 0, err
		}
	}
	for _, v := range []float64{100, -50} {
		if err := selection.Populate([]ibl.Option{0, 1}, v); err != nil {
			return nil, 0, 0, 0, err
		}
		if c.hasP {
			if err := attack.Populate([]ibl.Option{map[string]any{"attack": true, "warning": 0}, map[string]any{"attack": true, "warning": 1}}, v); err != nil {
				return nil, 0, 0, 0, err
			}
		} else {
			if err := attack.Populate([]ibl.Option{map[string]any{"attack": true}}, v); err != nil {
				return nil, 0, 0, 0, err
			}
		}
	}

	selection.Reset(true)
	attack.Reset(true)

	var total float64
	for round := 0; round < cfg.Rounds; round++ {
		selected, err := selection.Choose(0, 1)
		if err != nil {
			return nil, 0, 0, 0, fmt.Errorf("selection choose: %w", err)
		}
		covered := rng.Float64() < 0.5

		var warned int
		var attackChosen map[string]any
		if c.hasP {
			if covered {
				warned = boolToInt(rng.Float64() < c.p)
			} else {
				warned = boolToInt(rng.Float64() < c.q)
			}
			chosen, err := attack.Choose(map[string]any{"attack": true, "warning": warned}, map[string]any{"attack": false, "warning": warned})
			if err != nil {
				return nil, 0, 0, 0, fmt.Errorf("attack choose: %w", err)
			}
			attackChosen = chosen.(map[string]any)
		} else {
			chosen, err := attack.Choose(map[string]any{"attack": true}, map[string]any{"attack": false})
			if err != nil {
				return nil, 0, 0, 0, fmt.Errorf("attack choose: %w", err)
			}
			attackChosen = chosen.(map[string]any)
		}
		didAttack, _ := attackChosen["attack"].(bool)

		var payoff float64
		switch {
		case !didAttack:
			withdrew++
			payoff = 0
		case covered:
			failed++
			payoff = -50
		default:
			successful++
			payoff = 100
		}
		total += payoff

		if _, err := attack.Respond(&payoff, nil); err != nil {
			return nil, 0, 0, 0, fmt.Errorf("attack respond: %w", err)
		}
		if _, err := selection.Respond(&payoff, nil); err != nil {
			return nil, 0, 0, 0, fmt.Errorf("selection respond: %w", err)
		}

		warningCol := ""
		if c.hasP {
			warningCol = strconv.Itoa(warned)
		}
		rows = append(rows, []string{
			c.name,
			strconv.Itoa(participant + 1),
			strconv.Itoa(round + 1),
			fmt.Sprintf("%v", selected),
			warningCol,
			strconv.Itoa(boolToInt(covered)),
			strconv.Itoa(boolToInt(didAttack)),
			strconv.FormatFloat(payoff, 'f', -1, 64),
			strconv.FormatFloat(total, 'f', -1, 64),
		})
	}
	return rows, successful, failed, withdrew, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
