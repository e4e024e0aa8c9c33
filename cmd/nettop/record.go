package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ftahirops/nettop/internal/source/kprobe"
)

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <file>",
		Short: "Attach the live probe and write decoded events to a file, for later replay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return recordTo(cmd.Context(), args[0])
		},
	}
	return cmd
}

func recordTo(ctx context.Context, path string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	numCPU := runtime.NumCPU()
	src, err := kprobe.Open(ctx, numCPU, msgBufferCap)
	if err != nil {
		return fmt.Errorf("nettop record: open kernel probe: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("nettop record: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	var mu sync.Mutex
	var wg sync.WaitGroup
	for cpu := 0; cpu < numCPU; cpu++ {
		cpu := cpu
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range src.Events(cpu) {
				for _, rec := range batch {
					line, err := json.Marshal(recordEntryFrom(cpu, rec))
					if err != nil {
						continue
					}
					mu.Lock()
					w.Write(line)
					w.WriteByte('\n')
					mu.Unlock()
				}
			}
		}()
	}

	<-ctx.Done()
	src.Close()
	wg.Wait()
	return nil
}
