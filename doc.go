// Package objsync synchronizes objects between object-storage locations,
// preferring server-side direct transfers and falling back to a streaming
// read-then-write path when direct transfer is not possible.
//
// A sync invocation takes a list of transfer tasks and a configuration,
// partitions the tasks into batches, runs them through a bounded worker
// pool with per-task retries, and returns one outcome per task together
// with an efficiency report comparing the run against a sequential
// per-object baseline.
//
// Key features:
//   - Automatic mode selection with capability probing and fallback
//   - Server-side copy with multipart fan-out for large objects
//   - Streaming transfers with no local staging requirement
//   - Incremental sync that skips unchanged destination objects
//   - Optional delegation to an external bulk-copy tool
//
// Example usage:
//
//	client, err := objsync.New(objsync.WithRegion("us-west-2"))
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Sync(ctx, tasks, synctypes.Config{
//	    DestinationContainer: "archive-mirror",
//	})
//	if err != nil {
//	    return err
//	}
package objsync
