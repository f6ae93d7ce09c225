// Package logging provides structured logging using uber/zap.
//
// Output is JSON by default and colored console text in development mode.
// A run logger is tagged once with the run id, and each stage derives its
// own logger from it:
//
//	logger := logging.NewDefault().ForRun(runID.String())
//	trunkLog := logger.ForStage(logging.StageTrunk, 3)
//	trunkLog.Debug("Received", zap.Int64("value", v))
//
// The stage name becomes the logger name ("stage" in JSON output) and the
// stage id is logged under the same key, so `"trunk": 3` filters one Trunk.
//
// Logs go to stderr by default. The notification trace file is a separate
// sink owned by the notify package and never shares this output.
package logging
