package output

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/norasector/serialmail/pkg/record"
	"github.com/rs/zerolog"
)

// Sink persists decoded records. Write is only ever called from the receive
// loop, one record at a time and in the order frames arrived.
type Sink interface {
	Name() string
	Write(rec *record.Record) error
	Flush() error
	Close() error
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON, FormatCBOR:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

func (f Format) Ext() string {
	return string(f)
}

// recordWriter appends records to one open file.
type recordWriter interface {
	WriteRecord(rec *record.Record) error
	Close() error
}

func (f Format) open(path string) (recordWriter, error) {
	switch f {
	case FormatCSV:
		return openCSV(path)
	case FormatJSON:
		return openJSON(path)
	case FormatCBOR:
		return openCBOR(path)
	default:
		return nil, fmt.Errorf("unsupported output format %q", f)
	}
}

// NodeFiles writes every node's records to its own file, named after the
// node and the start of the run. Files are created on first use and appended
// to if they already exist.
type NodeFiles struct {
	dir    string
	base   string
	format Format
	start  time.Time
	logger zerolog.Logger
	files  map[int32]recordWriter
}

func NewNodeFiles(dir, base string, format Format, start time.Time, logger zerolog.Logger) *NodeFiles {
	return &NodeFiles{
		dir:    dir,
		base:   base,
		format: format,
		start:  start,
		logger: logger,
		files:  make(map[int32]recordWriter),
	}
}

func (n *NodeFiles) Name() string {
	return string(n.format)
}

func (n *NodeFiles) Path(node int32) string {
	return record.FileName(n.dir, n.base, node, n.start, n.format.Ext())
}

func (n *NodeFiles) Write(rec *record.Record) error {
	w, ok := n.files[rec.Node]
	if !ok {
		path := n.Path(rec.Node)
		if st, err := os.Stat(path); err == nil && st.Size() > 0 {
			n.logger.Warn().Str("file", path).Msg("output file exists and will be appended to")
		}

		var err error
		w, err = n.format.open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		n.logger.Info().Str("file", path).Int32("node", rec.Node).Msg("opened output file")
		n.files[rec.Node] = w
	}
	return w.WriteRecord(rec)
}

// Flush is a no-op: every record is written through before Write returns.
func (n *NodeFiles) Flush() error {
	return nil
}

func (n *NodeFiles) Close() error {
	nodes := make([]int, 0, len(n.files))
	for node := range n.files {
		nodes = append(nodes, int(node))
	}
	sort.Ints(nodes)

	var errs []error
	for _, node := range nodes {
		if err := n.files[int32(node)].Close(); err != nil {
			errs = append(errs, err)
		}
		delete(n.files, int32(node))
	}
	return errors.Join(errs...)
}
