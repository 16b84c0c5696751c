// Package pipeline runs a configuration object against a raster.
//
// Each member of the object names a transformation; members run in source
// order and each one receives the previous step's output. The first failure
// aborts the run:
//
//	exec := pipeline.NewExecutor(transform.MustDefault(),
//		pipeline.WithLogger(log),
//		pipeline.WithMetrics(pipeline.NewMetrics()),
//	)
//	res, err := exec.Run(ctx, raster, cfg)
//	var ve *config.ValidationError
//	if errors.As(err, &ve) {
//		// ve.Kind, ve.Key, ve.Field describe the rejected parameter
//	}
//
// Keys that match no registered transformation are skipped and reported in
// Result.Skipped unless the executor was built with WithUnknownKeys(RejectUnknown).
package pipeline
