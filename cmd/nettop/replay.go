package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/ftahirops/nettop/internal/config"
	"github.com/ftahirops/nettop/internal/event"
	"github.com/ftahirops/nettop/internal/logging"
	"github.com/ftahirops/nettop/internal/source/replay"
)

// wireEntry is the JSON-lines on-disk shape record and replay share, a
// flattened, human-inspectable stand-in for the probe's binary wire
// record (event.IPAddr carries unexported fields, so it is marshaled
// through its string form rather than directly).
type wireEntry struct {
	CPU        int    `json:"cpu"`
	SockType   uint8  `json:"sock_type"`
	LocalAddr  string `json:"local_addr"`
	RemoteAddr string `json:"remote_addr"`
	LocalPort  uint16 `json:"local_port"`
	RemotePort uint16 `json:"remote_port"`
	Ret        int32  `json:"ret"`
	PID        uint32 `json:"pid"`
	Channel    uint8  `json:"channel"`
}

func newReplayCmd() *cobra.Command {
	var lostCount uint64
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Replay a recorded event file through the UI instead of attaching a live probe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batches, err := loadBatches(args[0])
			if err != nil {
				return fmt.Errorf("nettop replay: %w", err)
			}

			cfg := config.Load()
			cfg.BacklogSecs = backlogSecs
			cfg.IntervalMs = intervalMs
			cfg.UIRefreshRateMs = refreshMs
			cfg.DefaultFilter = filterFlag

			logger := logging.New(verbose)
			numCPU := maxCPU(batches) + 1
			src := replay.New(numCPU, batches, lostCount)
			defer src.Close()

			return runWithSource(cmd.Context(), cfg, logger, src)
		},
	}
	cmd.Flags().Uint64Var(&lostCount, "synthetic-lost", 0, "synthetic dropped-record count to report alongside the replay")
	return cmd
}

func maxCPU(batches []replay.Batch) int {
	max := 0
	for _, b := range batches {
		if b.CPU > max {
			max = b.CPU
		}
	}
	return max
}

func loadBatches(path string) ([]replay.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var batches []replay.Batch
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var w wireEntry
		if err := json.Unmarshal(line, &w); err != nil {
			return nil, fmt.Errorf("parse line: %w", err)
		}
		rec, err := w.toRecord()
		if err != nil {
			return nil, err
		}
		batches = append(batches, replay.Batch{CPU: w.CPU, Records: []event.Record{rec}})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func (w wireEntry) toRecord() (event.Record, error) {
	local, err := event.FromNetIP(net.ParseIP(w.LocalAddr))
	if err != nil {
		return event.Record{}, fmt.Errorf("local_addr: %w", err)
	}
	remote, err := event.FromNetIP(net.ParseIP(w.RemoteAddr))
	if err != nil {
		return event.Record{}, fmt.Errorf("remote_addr: %w", err)
	}
	return event.Record{
		SockType:   event.SocketType(w.SockType),
		LocalAddr:  local,
		RemoteAddr: remote,
		LocalPort:  w.LocalPort,
		RemotePort: w.RemotePort,
		Ret:        w.Ret,
		PID:        w.PID,
		Channel:    event.Channel(w.Channel),
	}, nil
}

func recordEntryFrom(cpu int, r event.Record) wireEntry {
	return wireEntry{
		CPU:        cpu,
		SockType:   uint8(r.SockType),
		LocalAddr:  r.LocalAddr.String(),
		RemoteAddr: r.RemoteAddr.String(),
		LocalPort:  r.LocalPort,
		RemotePort: r.RemotePort,
		Ret:        r.Ret,
		PID:        r.PID,
		Channel:    uint8(r.Channel),
	}
}
