// Package task implements the object-detection task lifecycle: training,
// cancellation, analysis, performance computation, optimization, and model
// reloading.
//
// A Task is bound to a TaskEnvironment at construction and owns a scratch
// directory holding its model store. The lifecycle operations mirror the
// contract exercised by the end-to-end tests:
//
//   - Train fits a softmax classifier over detector region features. It is a
//     long-running call; only one training run may be in flight per task.
//   - CancelTraining may be called concurrently while Train is in flight and
//     signals the run to stop. The in-flight Train call observes the signal
//     between work items and returns promptly; a run cancelled before any
//     epoch completes returns the null model. Cancelling when no training is
//     active is a no-op.
//   - Analyse runs inference over a dataset and emits prediction scenes.
//   - ComputePerformance scores a result set with the F-measure at IoU 0.5.
//   - OptimizeLoadedModel quantizes the loaded model's weights to int8.
//   - LoadModel reloads a previously saved model from the store by digest;
//     weights round-trip exactly, so re-evaluation reproduces the original
//     score.
package task
