package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"medbill/internal"
	"medbill/internal/config"
	"medbill/internal/llm"
	"medbill/internal/pipeline"
	"medbill/internal/storage"
	"medbill/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	completer := llm.NewClient(cfg)

	cmd := os.Args[1]
	switch cmd {
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path")
		inType := fs.String("type", "xlsx", "xlsx|html|pdf")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		processor := pipeline.NewProcessingService(db, cfg, completer)
		source, defs, err := processor.ImportSource(*input, internal.SourceFormat(*inType), true)
		must(err)
		fmt.Printf("imported sourceId=%d rows=%d\n", source.ID, defs)
	case "process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sourceID := fs.Int("sourceId", 0, "specific source id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg, completer)
		if *sourceID != 0 {
			counts, err := processor.ProcessSource(context.Background(), *sourceID)
			must(err)
			fmt.Printf("processed sourceId=%d definitions=%d rows=%d skipped=%d failed=%d\n",
				*sourceID, counts.Definitions, counts.RowsEmitted, counts.Skipped, counts.Failed)
			return
		}
		processed, counts, err := processor.ProcessPending(context.Background(), *batch)
		must(err)
		fmt.Printf("processed pending sources=%d definitions=%d rows=%d\n", processed, counts.Definitions, counts.RowsEmitted)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		sourceID := fs.Int("sourceId", 0, "internal source id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *sourceID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--sourceId and --out are required"))
		}
		rows, err := db.GetBillingRowsBySource(*sourceID)
		must(err)
		must(pipeline.ExportRowsToXLSX(rows, *out))
		must(db.UpdateSourceStatus(*sourceID, "exported"))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path")
		inType := fs.String("type", "xlsx", "xlsx|html|pdf")
		output := fs.String("output", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *output == "" {
			must(fmt.Errorf("--input and --output are required"))
		}
		processor := pipeline.NewProcessingService(db, cfg, completer)
		counts, err := processor.RunOnce(context.Background(), internal.SourceFormat(*inType), *input, *output)
		must(err)
		fmt.Printf("run done definitions=%d rows=%d skipped=%d failed=%d output=%s\n",
			counts.Definitions, counts.RowsEmitted, counts.Skipped, counts.Failed, *output)
	case "watch":
		s := watcher.NewService(db, cfg, completer)
		must(s.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: medbill <command>")
	fmt.Println("commands:")
	fmt.Println("  import --input=definitions.xlsx --type=xlsx|html|pdf")
	fmt.Println("  process [--sourceId=1] [--batch=20]")
	fmt.Println("  export:xlsx --sourceId=1 --out=./out/billing.xlsx")
	fmt.Println("  run --input=definitions.xlsx --type=xlsx --output=./out/billing.xlsx")
	fmt.Println("  watch")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
