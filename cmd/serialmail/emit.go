package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/decoder"
	"github.com/norasector/serialmail/pkg/device/serial"
	"github.com/norasector/serialmail/pkg/frame"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// generator produces synthetic SerialMail messages: a sine on ch0 and a
// ramp on ch1, per node.
type generator struct {
	nodes     []int32
	samples   int
	amplitude float64
	cal       adc.Calibration
	seq       int
}

func (g *generator) next() *decoder.Message {
	node := g.nodes[g.seq%len(g.nodes)]
	msg := &decoder.Message{
		Node: node,
		Ch0:  make([]adc.Triple, g.samples),
		Ch1:  make([]adc.Triple, g.samples),
	}
	for i := 0; i < g.samples; i++ {
		n := float64(g.seq*g.samples + i)
		msg.Ch0[i] = g.sample(math.Sin(2 * math.Pi * n / 64))
		msg.Ch1[i] = g.sample(math.Mod(n/256, 2) - 1)
	}
	g.seq++
	return msg
}

// sample maps x in [-1, 1] to a raw count around the sign boundary.
func (g *generator) sample(x float64) adc.Triple {
	raw := float64(g.cal.DataBits) + x*g.amplitude*float64(g.cal.DataBits-1)
	return adc.TripleFromRaw(uint32(math.Round(raw)))
}

func emitCmd(load configLoader) *cobra.Command {
	var (
		port       string
		baudRate   int
		outFile    string
		nodes      []int
		count      int
		samples    int
		interval   time.Duration
		amplitude  float64
		noiseEvery int
	)

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Send synthetic SerialMail frames to a serial port or file",
		Example: `  serialmail emit --port /dev/ttyUSB1 --node 1 --node 2 --interval 100ms
  serialmail emit --out capture.bin --count 1000 --noise-every 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Framing.Validate(); err != nil {
				return err
			}
			if err := cfg.Calibration.Validate(); err != nil {
				return err
			}
			if err := setLogLevel(cfg); err != nil {
				return err
			}
			if len(nodes) == 0 {
				return fmt.Errorf("at least one --node is required")
			}
			if samples < 0 || amplitude < 0 || amplitude > 1 {
				return fmt.Errorf("samples must be non-negative and amplitude in [0, 1]")
			}

			var w io.WriteCloser
			switch {
			case outFile != "":
				f, err := os.Create(outFile)
				if err != nil {
					return err
				}
				w = f
			case port != "" || cfg.Serial.Port != "":
				serialCfg := cfg.Serial
				if port != "" {
					serialCfg.Port = port
				}
				if cmd.Flags().Changed("baudrate") {
					serialCfg.BaudRate = baudRate
				}
				p, err := serial.Open(serialCfg)
				if err != nil {
					return err
				}
				w = p
			default:
				return fmt.Errorf("either --port or --out is required")
			}
			defer w.Close()

			gen := &generator{samples: samples, amplitude: amplitude, cal: cfg.Calibration}
			for _, n := range nodes {
				gen.nodes = append(gen.nodes, int32(n))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return emit(ctx, w, gen, cfg.Framing, count, interval, noiseEvery)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "serial port to write to")
	cmd.Flags().IntVar(&baudRate, "baudrate", 115200, "baud rate")
	cmd.Flags().StringVar(&outFile, "out", "", "write frames to this file instead of a serial port")
	cmd.Flags().IntSliceVar(&nodes, "node", []int{1}, "node id to emit as (repeatable, round robin)")
	cmd.Flags().IntVar(&count, "count", 0, "number of frames; 0 runs until interrupted")
	cmd.Flags().IntVar(&samples, "samples", 8, "samples per channel")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "time between frames")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 0.8, "signal amplitude as a fraction of full scale")
	cmd.Flags().IntVar(&noiseEvery, "noise-every", 0, "insert random bytes before every nth frame")

	return cmd
}

func emit(ctx context.Context, w io.Writer, gen *generator, opts frame.Options, count int, interval time.Duration, noiseEvery int) error {
	enc := frame.NewEncoder(w, opts)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	sent := 0
	defer func() { log.Info().Int("frames", sent).Msg("done") }()

	for ; count == 0 || sent < count; sent++ {
		if noiseEvery > 0 && sent%noiseEvery == noiseEvery-1 {
			noise := make([]byte, 1+rng.Intn(16))
			rng.Read(noise)
			// Noise never forms a marker, so it cannot swallow the next frame.
			for i := range noise {
				if noise[i] == frame.SyncByte {
					noise[i] = ^frame.SyncByte
				}
			}
			if _, err := w.Write(noise); err != nil {
				return err
			}
		}

		msg := gen.next()
		if err := enc.Encode(decoder.Encode(msg)); err != nil {
			return err
		}
		log.Debug().Int32("node", msg.Node).Int("frame", sent).Msg("sent SerialMail")

		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}
