// ============================================================================
// CREATE2GPU: Command-Line Entry Point
// ============================================================================
//
// Wires urfave/cli/v2 flags into config.Parse, then hands the frozen
// Config to the Orchestrator. Styled after bitcoin-wallet-bruteforce-
// offline.go's main() (banner, section comments, os.Exit on setup
// failure) but replaces its raw os.Args parsing with a proper cli.App,
// the way ethereum-go-ethereum's cmd/geth and multi-geth-multi-geth wire
// their own urfave/cli surfaces.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/create2gpu/miner/internal/config"
	"github.com/create2gpu/miner/internal/orchestrator"
	"github.com/create2gpu/miner/internal/sink"
)

func main() {
	app := &cli.App{
		Name:  "create2gpu",
		Usage: "GPU-accelerated CREATE2 vanity salt miner",
		Commands: []*cli.Command{
			mineCommand(),
			resultsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func mineCommand() *cli.Command {
	return &cli.Command{
		Name:  "mine",
		Usage: "search for a CREATE2 salt matching the configured predicate",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "starts-with", Aliases: []string{"s"}},
			&cli.StringFlag{Name: "ends-with", Aliases: []string{"e"}},
			&cli.StringFlag{Name: "deployer", Required: true},
			&cli.StringFlag{Name: "caller", Aliases: []string{"c"}},
			&cli.StringFlag{Name: "init-code-hash", Required: true},
			&cli.UintFlag{Name: "gpu", Aliases: []string{"g"}},
			&cli.BoolFlag{Name: "all-gpus", Aliases: []string{"a"}},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "results.csv"},
			&cli.UintFlag{Name: "min-leading"},
			&cli.UintFlag{Name: "min-trailing"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		},
		Action: runMine,
	}
}

func runMine(c *cli.Context) error {
	cfg, err := config.Parse(config.RawArgs{
		StartsWith:  c.String("starts-with"),
		EndsWith:    c.String("ends-with"),
		Deployer:    c.String("deployer"),
		Caller:      c.String("caller"),
		InitHash:    c.String("init-code-hash"),
		GPU:         c.Uint("gpu"),
		AllGPUs:     c.Bool("all-gpus"),
		Output:      c.String("output"),
		Verbose:     c.Bool("verbose"),
		MinLeading:  c.Uint("min-leading"),
		MinTrailing: c.Uint("min-trailing"),
	})
	if err != nil {
		return err
	}

	fmt.Println("============================================================")
	fmt.Println(" create2gpu: GPU-accelerated CREATE2 salt miner")
	fmt.Println("============================================================")
	fmt.Printf("deployer=0x%x  output=%s  mode=%v\n", cfg.Deployer, cfg.OutputFile, cfg.Mode)

	sk := sink.New(cfg.OutputFile)

	stop := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(stop)
	}()

	if err := orchestrator.Run(stop, cfg, sk); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	return nil
}

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "print recorded hits as a table, best score first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Value: "results.csv"},
			&cli.IntFlag{Name: "top", Value: 10},
		},
		Action: runResults,
	}
}

func runResults(c *cli.Context) error {
	sk := sink.New(c.String("file"))
	hits, err := sk.All()
	if err != nil {
		return fmt.Errorf("loading results: %w", err)
	}
	if len(hits) == 0 {
		fmt.Println("no results recorded yet")
		return nil
	}

	sortByScoreDesc(hits)

	top := c.Int("top")
	if top > 0 && top < len(hits) {
		hits = hits[:top]
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Address", "Score", "Leading", "Trailing", "Platform", "Device", "Salt"})
	for _, h := range hits {
		table.Append([]string{
			h.Address,
			fmt.Sprintf("%d", h.Score),
			fmt.Sprintf("%d", h.LeadingOnes),
			fmt.Sprintf("%d", h.TrailingOnes),
			fmt.Sprintf("%d", h.PlatformID),
			fmt.Sprintf("%d", h.DeviceID),
			h.Salt,
		})
	}
	table.Render()
	return nil
}

func sortByScoreDesc(hits []sink.Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
