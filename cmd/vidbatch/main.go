package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vidbatch/vidbatch/internal/batch"
	"github.com/vidbatch/vidbatch/internal/encoder"
)

var (
	srcDir     = flag.String("in", "", "source directory")
	dstDir     = flag.String("out", "", "destination directory")
	ffmpegPath = flag.String("ffmpeg", "", "encoder executable (default: discover ffmpeg)")
	formats    = flag.String("formats", ".mpg,.avi", "comma-separated source extensions")
	destFormat = flag.String("to", ".mp4", "destination extension")
	flat       = flag.Bool("flat", false, "scan only the top level and write outputs flat")
	check      = flag.Bool("check", false, "verify the encoder works and exit")
)

func main() {
	flag.Parse()

	bin := *ffmpegPath
	if bin == "" {
		bin = encoder.FindDefault()
	}

	if *check {
		version, err := encoder.Check(bin)
		if err != nil {
			log.Fatalf("encoder check failed for %s: %v", bin, err)
		}
		fmt.Println(version)
		return
	}

	if *srcDir == "" || *dstDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	req := batch.Request{
		SourceDir:         *srcDir,
		DestDir:           *dstDir,
		EncoderPath:       bin,
		SourceExts:        splitFormats(*formats),
		DestExt:           *destFormat,
		PreserveStructure: !*flat,
	}
	if err := os.MkdirAll(req.DestDir, 0755); err != nil {
		log.Fatalf("create destination directory: %v", err)
	}
	if err := req.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	run := batch.New(req, encoder.Invoker{})
	run.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var terminal string
	for {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "cancelling after the current file (interrupt again to force quit)")
			run.RequestCancel()
			// Restore default handling so a second interrupt kills us.
			signal.Stop(sigCh)
		case <-ticker.C:
			terminal = printEvents(run, terminal)
		case <-run.Done():
			terminal = printEvents(run, terminal)
			if terminal == batch.StatusCancelled {
				os.Exit(1)
			}
			return
		}
	}
}

// printEvents flushes both queues in order: log lines go to stdout, progress
// events are watched for the terminal status.
func printEvents(run *batch.Run, terminal string) string {
	for _, ev := range run.DrainLogs() {
		fmt.Println(ev.Message)
	}
	for _, ev := range run.DrainProgress() {
		if ev.Terminal() {
			terminal = ev.Status
		}
	}
	return terminal
}

func splitFormats(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
