package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/norasector/serialmail/pkg/adc"
	"github.com/norasector/serialmail/pkg/config"
	"github.com/norasector/serialmail/pkg/decoder"
	"github.com/norasector/serialmail/pkg/frame"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitRoundTrip(t *testing.T) {
	cal := adc.DefaultCalibration()
	gen := &generator{nodes: []int32{1, 2, 3}, samples: 16, amplitude: 1, cal: cal}

	var buf bytes.Buffer
	opts := frame.DefaultOptions()
	opts.Checksum = frame.ChecksumCRC16
	require.NoError(t, emit(context.Background(), &buf, gen, opts, 9, 0, 3))

	ex := frame.NewExtractor(opts)
	ex.Feed(buf.Bytes())

	var nodes []int32
	for {
		payload, err := ex.Next()
		if errors.Is(err, frame.ErrNeedMore) {
			break
		}
		var ferr *frame.FramingError
		if errors.As(err, &ferr) {
			continue
		}
		require.NoError(t, err)

		msg, err := decoder.Decode(payload)
		require.NoError(t, err)
		require.Len(t, msg.Ch0, 16)
		require.Len(t, msg.Ch1, 16)
		for _, v := range adc.ConvertAll(msg.Ch0, cal) {
			assert.LessOrEqual(t, v, cal.FullScale())
			assert.GreaterOrEqual(t, v, -cal.FullScale())
		}
		nodes = append(nodes, msg.Node)
	}
	assert.Equal(t, []int32{1, 2, 3, 1, 2, 3, 1, 2, 3}, nodes)
}

func TestOutputFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var out outputFlags
	out.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--file", "data/run.json", "--format", "json", "--format", "cbor"}))

	cfg := config.Default()
	out.apply(cmd, &cfg)
	assert.Equal(t, "data/", cfg.Output.Directory)
	assert.Equal(t, "run", cfg.Output.Name)
	assert.Equal(t, []string{"json", "cbor"}, cfg.Output.Formats)

	cmd = &cobra.Command{Use: "test"}
	out = outputFlags{}
	out.register(cmd)
	require.NoError(t, cmd.ParseFlags(nil))
	cfg = config.Default()
	out.apply(cmd, &cfg)
	assert.Equal(t, config.Default().Output, cfg.Output)
}

func TestLoadConfigMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "serialmail.yaml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = loadConfig(missing, true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReplayCapture(t *testing.T) {
	dir := t.TempDir()
	capture := filepath.Join(dir, "capture.bin")

	var buf bytes.Buffer
	gen := &generator{nodes: []int32{5}, samples: 4, amplitude: 0.5, cal: adc.DefaultCalibration()}
	require.NoError(t, emit(context.Background(), &buf, gen, frame.DefaultOptions(), 3, 0, 0))
	require.NoError(t, os.WriteFile(capture, buf.Bytes(), 0644))

	cfg := config.Default()
	cfg.Output.Console = false
	cfg.Output.Directory = dir
	cfg.Output.Name = "replay"
	cfg.Output.Formats = []string{"csv", "json"}

	cmd := replayCmd(func(*cobra.Command) (config.Config, error) { return cfg, nil })
	cmd.SetArgs([]string{capture})
	require.NoError(t, cmd.Execute())

	csvs, err := filepath.Glob(filepath.Join(dir, "replay_node5_*.csv"))
	require.NoError(t, err)
	assert.Len(t, csvs, 1)
	jsons, err := filepath.Glob(filepath.Join(dir, "replay_node5_*.json"))
	require.NoError(t, err)
	assert.Len(t, jsons, 1)
}
