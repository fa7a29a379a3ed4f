// v2
// cmd/evalharness/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/harness"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/httpapi"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/kpi"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/logging"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/strategy"
)

func main() {
	cfg := harness.LoadEnv()

	stratName := flag.String("strategy", "none", "built-in strategy: none | move_on_orders")
	durationS := flag.Int("duration", 0, "evaluation window in seconds (overrides EVAL_DURATION_S)")
	transport := flag.String("transport", "", "direct | networked (overrides EVAL_TRANSPORT)")
	broker := flag.String("broker", "", "mqtt | kafka (overrides EVAL_BROKER)")
	flag.Parse()

	if *durationS > 0 {
		cfg.Duration = time.Duration(*durationS) * time.Second
	}
	if *transport != "" {
		cfg.Transport = harness.TransportMode(*transport)
	}
	if *broker != "" {
		cfg.Broker = harness.BrokerKind(*broker)
	}

	log, logFile := logging.Init("evalharness")
	if logFile != nil {
		defer logFile.Close()
	}

	strat, err := builtinStrategy(*stratName)
	if err != nil {
		log.Error("bad strategy flag", "error", err)
		os.Exit(2)
	}

	run, err := harness.NewRun(cfg, log)
	if err != nil {
		log.Error("run setup failed", "error", err)
		os.Exit(1)
	}

	var api *httpapi.Server
	if cfg.HTTPBind != "" {
		api = httpapi.NewServer(cfg.HTTPBind, run.Controller(), run.Metrics(), log)
		go func() {
			if err := api.Start(); err != nil {
				log.Error("http server error", "error", err)
			}
		}()
	}

	log.Info("evaluation starting",
		"strategy", *stratName,
		"transport", string(cfg.Transport),
		"duration", cfg.Duration.String(),
		"topic_root", cfg.TopicRoot)

	result, err := run.Execute(strat)
	if err != nil {
		log.Error("evaluation failed", "error", err)
		os.Exit(1)
	}

	if api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = api.Stop(ctx)
		cancel()
	}

	printReport(result)
	if result.Aborted() {
		os.Exit(1)
	}
}

func builtinStrategy(name string) (strategy.Strategy, error) {
	switch name {
	case "none":
		return strategy.None(), nil
	case "move_on_orders":
		return strategy.MoveOnOrders("AGV_1", "P1"), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// printReport renders the score the way the results file stores it,
// grouped by category with the weighted components underneath.
func printReport(r *harness.Result) {
	fmt.Println("==================================================")
	fmt.Println(" STRATEGY EVALUATION RESULT")
	fmt.Println("==================================================")
	fmt.Printf(" total_score        %8.2f\n", r.TotalScore)
	for _, cat := range []string{kpi.CategoryEfficiency, kpi.CategoryQualityCost, kpi.CategoryAGV} {
		fmt.Printf(" %-18s %8.2f\n", cat, r.CategoryScores[cat])
		for _, c := range kpi.Components {
			if c.Category != cat {
				continue
			}
			fmt.Printf("   %-16s %8.2f  (w=%.2f)\n", c.Name, r.ComponentBreakdown[c.Name], c.Weight)
		}
	}
	fmt.Println("--------------------------------------------------")
	m := r.Metadata
	fmt.Printf(" elapsed            %.1fs real / %.0fs sim\n", m.ElapsedRealSeconds, m.ElapsedSimSeconds)
	fmt.Printf(" messages           %d processed\n", m.MessagesProcessed)
	fmt.Printf(" commands           %d issued, %d rejected\n", m.CommandsIssued, m.CommandsRejected)
	fmt.Printf(" strategy failures  %d errors, %d timeouts\n", m.StrategyErrors, m.StrategyTimeouts)
	if m.AbortReason != "" {
		fmt.Printf(" ABORTED            %s\n", m.AbortReason)
	}
	fmt.Println("==================================================")
}
