package output

import (
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/serialmail/pkg/record"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// InfluxOutput writes one point per record with per-channel statistics.
type InfluxOutput struct {
	writeAPI api.WriteAPI
}

func NewInfluxOutput(writeAPI api.WriteAPI) *InfluxOutput {
	return &InfluxOutput{writeAPI: writeAPI}
}

func (i *InfluxOutput) Name() string {
	return "influxdb"
}

func channelFields(fields map[string]interface{}, prefix string, vs []float64) {
	fields[prefix+"_samples"] = len(vs)
	if len(vs) == 0 {
		return
	}
	fields[prefix+"_min"] = floats.Min(vs)
	fields[prefix+"_max"] = floats.Max(vs)
	if len(vs) == 1 {
		fields[prefix+"_mean"] = vs[0]
		return
	}
	mean, std := stat.MeanStdDev(vs, nil)
	fields[prefix+"_mean"] = mean
	fields[prefix+"_stddev"] = std
}

func RecordFields(rec *record.Record) map[string]interface{} {
	fields := make(map[string]interface{})
	channelFields(fields, "ch0", rec.Ch0)
	channelFields(fields, "ch1", rec.Ch1)
	return fields
}

func (i *InfluxOutput) Write(rec *record.Record) error {
	i.writeAPI.WritePoint(influxdb2.NewPoint("serialmail.record",
		map[string]string{
			"node": strconv.Itoa(int(rec.Node)),
		},
		RecordFields(rec),
		rec.Timestamp))
	return nil
}

func (i *InfluxOutput) Flush() error {
	i.writeAPI.Flush()
	return nil
}

func (i *InfluxOutput) Close() error {
	return i.Flush()
}
