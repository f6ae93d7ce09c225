package pipeline

import (
	"io"
	"time"

	"github.com/bytedance/sonic"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/etherpipe/internal/notify"
	"github.com/GriffinCanCode/etherpipe/internal/queue"
	"github.com/GriffinCanCode/etherpipe/internal/trunk"
)

// Report summarizes one finished run.
type Report struct {
	RunID         string        `json:"run_id"`
	Started       time.Time     `json:"started"`
	Finished      time.Time     `json:"finished"`
	Generated     int           `json:"generated"`
	Collected     int           `json:"collected"`
	Notifications notify.Stats  `json:"notifications"`
	QueueOut      queue.Stats   `json:"queue_out"`
	QueueIn       queue.Stats   `json:"queue_in"`
	Trunks        []TrunkReport `json:"trunks"`
}

// TrunkReport holds the outcome of one Trunk. Latencies are in milliseconds.
type TrunkReport struct {
	ID               int       `json:"id"`
	Quota            int       `json:"quota"`
	DelayMicros      int64     `json:"delay_us"`
	Started          time.Time `json:"started"`
	Finished         time.Time `json:"finished"`
	Exchanges        int       `json:"exchanges"`
	ExchangeFailures int       `json:"exchange_failures"`
	LatencyMean      float64   `json:"latency_mean_ms"`
	LatencyStdDev    float64   `json:"latency_stddev_ms"`
	LatencyMax       float64   `json:"latency_max_ms"`
}

// Elapsed returns the wall time of the run.
func (r *Report) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (p *Pipeline) report(started, finished time.Time) *Report {
	r := &Report{
		RunID:         p.opts.runID.String(),
		Started:       started,
		Finished:      finished,
		Notifications: p.channel.Stats(),
		QueueOut:      p.qOut.Stats(),
		QueueIn:       p.qIn.Stats(),
		Trunks:        make([]TrunkReport, 0, len(p.trunks)),
	}
	r.Generated = int(r.QueueOut.Enqueued)
	r.Collected = int(r.QueueIn.Dequeued)

	for _, t := range p.trunks {
		r.Trunks = append(r.Trunks, summarize(t.Stats()))
	}
	return r
}

func summarize(s trunk.Stats) TrunkReport {
	tr := TrunkReport{
		ID:               s.ID,
		Quota:            s.Quota,
		DelayMicros:      s.Delay.Microseconds(),
		Started:          s.Started,
		Finished:         s.Finished,
		Exchanges:        len(s.Latencies),
		ExchangeFailures: s.ExchangeFailures,
	}
	if len(s.Latencies) == 0 {
		return tr
	}

	ms := make([]float64, len(s.Latencies))
	for i, d := range s.Latencies {
		ms[i] = float64(d) / float64(time.Millisecond)
	}

	tr.LatencyMax = floats.Max(ms)
	if len(ms) == 1 {
		tr.LatencyMean = ms[0]
		return tr
	}
	tr.LatencyMean, tr.LatencyStdDev = stat.MeanStdDev(ms, nil)
	return tr
}
