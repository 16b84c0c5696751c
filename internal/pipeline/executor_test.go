package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/image-pipeline-mcp/internal/config"
	pix "github.com/ironsheep/image-pipeline-mcp/internal/imaging"
	"github.com/ironsheep/image-pipeline-mcp/internal/logging"
	"github.com/ironsheep/image-pipeline-mcp/internal/transform"
)

func testRaster(w, h int) pix.Raster {
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	for y := 0; y < h/2; y++ {
		for x := 0; x < w/2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 220, B: 90, A: 255})
		}
	}
	return pix.NewRaster(img, "PNG")
}

func mustParse(t *testing.T, s string) config.Value {
	t.Helper()
	v, err := config.ParseString(s)
	require.NoError(t, err)
	return v
}

func requireValidation(t *testing.T, err error, kind config.ErrorKind, key, field string) {
	t.Helper()
	require.Error(t, err)
	var ve *config.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %T: %v", err, err)
	assert.Equal(t, kind, ve.Kind, ve.Error())
	assert.Equal(t, key, ve.Key)
	if field != "" {
		assert.Equal(t, field, ve.Field)
	}
}

func TestRunPipeline_Scenarios(t *testing.T) {
	reg := transform.MustDefault()
	ctx := context.Background()

	t.Run("resize", func(t *testing.T) {
		out, format, err := RunPipeline(ctx, reg, testRaster(100, 100), mustParse(t, `{"resize": {"width": 50, "height": 50}}`))
		require.NoError(t, err)
		assert.Equal(t, "PNG", format)
		assert.Equal(t, 50, out.Width())
		assert.Equal(t, 50, out.Height())
	})

	t.Run("border_crop", func(t *testing.T) {
		out, _, err := RunPipeline(ctx, reg, testRaster(100, 100), mustParse(t, `{"border_crop": 10}`))
		require.NoError(t, err)
		assert.Equal(t, 80, out.Width())
		assert.Equal(t, 80, out.Height())
	})

	tests := []struct {
		name  string
		cfg   string
		kind  config.ErrorKind
		key   string
		field string
	}{
		{"rotate string angle", `{"rotate": {"angle": "45"}}`, config.TypeMismatch, "rotate", "angle"},
		{"format gif", `{"format": "gif"}`, config.InvalidChoice, "format", "format"},
		{"pad centering", `{"pad": {"size": [10, 10], "centering": [1.5, 0.5]}}`, config.OutOfRange, "pad", "centering"},
		{"equalize params", `{"equalize": {"x": 1}}`, config.TypeMismatch, "equalize", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, format, err := RunPipeline(ctx, reg, testRaster(100, 100), mustParse(t, tt.cfg))
			requireValidation(t, err, tt.kind, tt.key, tt.field)
			assert.Nil(t, out.Image)
			assert.Empty(t, format)
		})
	}
}

func TestRun_ChainsInOrder(t *testing.T) {
	exec := NewExecutor(transform.MustDefault())
	cfg := mustParse(t, `{"crop": {"left": 0, "upper": 0, "right": 60, "lower": 40}, "rotate": {"angle": 90, "expand": true}, "format": "jpeg"}`)

	res, err := exec.Run(context.Background(), testRaster(100, 100), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"crop", "rotate", "format"}, res.Applied)
	assert.Empty(t, res.Skipped)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 40, res.Image.Width())
	assert.Equal(t, 60, res.Image.Height())
	assert.Equal(t, "PNG", res.OriginalFormat)
	assert.Equal(t, "JPEG", res.Image.Format)
	assert.Equal(t, pix.ModeRGB, res.Image.Mode)
}

func TestRun_EmptyConfig(t *testing.T) {
	src := testRaster(20, 10)
	res, err := NewExecutor(transform.MustDefault()).Run(context.Background(), src, mustParse(t, `{}`))
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Equal(t, src.Image, res.Image.Image)
}

func TestRun_NonObjectConfig(t *testing.T) {
	exec := NewExecutor(transform.MustDefault())
	for _, cfg := range []string{`[]`, `"resize"`, `null`, `3`} {
		_, err := exec.Run(context.Background(), testRaster(10, 10), mustParse(t, cfg))
		requireValidation(t, err, config.TypeMismatch, "pipeline", "config")
	}
}

func TestRun_StepError(t *testing.T) {
	exec := NewExecutor(transform.MustDefault())
	cfg := mustParse(t, `{"mirror": null, "grayscale": null, "posterize": 9}`)

	_, err := exec.Run(context.Background(), testRaster(10, 10), cfg)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 2, stepErr.Index)
	assert.Equal(t, "posterize", stepErr.Key)
	assert.True(t, errors.Is(err, config.ErrOutOfRange))
	assert.Contains(t, err.Error(), "step 2 (posterize)")
}

func TestRun_InputUntouched(t *testing.T) {
	src := testRaster(30, 30)
	before := imaging.Clone(src.Image)

	_, err := NewExecutor(transform.MustDefault()).Run(context.Background(), src,
		mustParse(t, `{"invert": null, "solarize": 50, "brightness": 1.5, "mirror": null}`))
	require.NoError(t, err)
	assert.Equal(t, before.Pix, imaging.Clone(src.Image).Pix)
}

func TestRun_UnknownKeys(t *testing.T) {
	cfg := `{"resize": {"width": 10}, "sepia": 1, "flip": null}`

	t.Run("skip", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		exec := NewExecutor(transform.MustDefault(), WithLogger(logging.FromZap(zap.New(core))))

		res, err := exec.Run(context.Background(), testRaster(20, 20), mustParse(t, cfg))
		require.NoError(t, err)
		assert.Equal(t, []string{"resize", "flip"}, res.Applied)
		assert.Equal(t, []string{"sepia"}, res.Skipped)

		skipped := logs.FilterMessage("skipping unknown transformation").All()
		require.Len(t, skipped, 1)
		assert.Equal(t, "sepia", skipped[0].ContextMap()["key"])
	})

	t.Run("reject", func(t *testing.T) {
		exec := NewExecutor(transform.MustDefault(), WithUnknownKeys(RejectUnknown))

		_, err := exec.Run(context.Background(), testRaster(20, 20), mustParse(t, cfg))
		var unknown *UnknownKeyError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "sepia", unknown.Key)
		assert.Equal(t, 1, unknown.Index)
		_, isValidation := config.KindOf(err)
		assert.False(t, isValidation)
	})
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    UnknownKeyPolicy
		wantErr bool
	}{
		{"", SkipUnknown, false},
		{"skip", SkipUnknown, false},
		{"REJECT", RejectUnknown, false},
		{"ignore", SkipUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustPolicy(t, got.String()))
		})
	}
}

func mustPolicy(t *testing.T, s string) UnknownKeyPolicy {
	t.Helper()
	p, err := ParsePolicy(s)
	require.NoError(t, err)
	return p
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(transform.MustDefault()).Run(ctx, testRaster(10, 10), mustParse(t, `{"flip": null}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Deterministic(t *testing.T) {
	exec := NewExecutor(transform.MustDefault())
	cfg := mustParse(t, `{
		"thumbnail": {"size": [40, 30]},
		"rotate": {"angle": 17.5, "expand": true, "fillcolor": "#336699"},
		"sharpness": 2.0,
		"basic_filter": ["EDGE_ENHANCE", "SMOOTH"],
		"rank_filter": {"size": 3, "filter_name": "MEDIAN"},
		"autocontrast": {"cutoff": 2},
		"pad": {"size": [64, 64], "color": "red"}
	}`)

	encode := func() []byte {
		res, err := exec.Run(context.Background(), testRaster(120, 90), cfg)
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = pix.Encode(&buf, res.Image, "PNG", 0)
		require.NoError(t, err)
		return buf.Bytes()
	}

	first := encode()
	for i := 0; i < 3; i++ {
		assert.True(t, bytes.Equal(first, encode()), "run %d differs", i)
	}
}

func TestRun_CropInvariant(t *testing.T) {
	const w, h = 4, 3
	reg := transform.MustDefault()
	src := testRaster(w, h)

	for left := -1; left <= w+1; left++ {
		for right := -1; right <= w+1; right++ {
			for upper := -1; upper <= h; upper++ {
				for lower := -1; lower <= h+1; lower++ {
					cfg := mustParse(t, fmt.Sprintf(`{"crop": {"left": %d, "upper": %d, "right": %d, "lower": %d}}`, left, upper, right, lower))
					out, _, err := RunPipeline(context.Background(), reg, src, cfg)

					valid := 0 <= left && left < right && right <= w && 0 <= upper && upper < lower && lower <= h
					if valid {
						require.NoError(t, err, "box %d,%d,%d,%d", left, upper, right, lower)
						assert.Equal(t, right-left, out.Width())
						assert.Equal(t, lower-upper, out.Height())
					} else {
						kind, ok := config.KindOf(err)
						require.True(t, ok, "box %d,%d,%d,%d: %v", left, upper, right, lower, err)
						assert.Equal(t, config.OutOfRange, kind)
					}
				}
			}
		}
	}
}

func TestRun_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	exec := NewExecutor(transform.MustDefault(), WithTracer(tp.Tracer("test")))
	_, err := exec.Run(context.Background(), testRaster(10, 10), mustParse(t, `{"mirror": null, "solarize": 300}`))
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "transform.mirror", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "transform.solarize", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "pipeline.run", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Equal(t, spans[2].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestRun_Metrics(t *testing.T) {
	m := NewMetrics()
	exec := NewExecutor(transform.MustDefault(), WithMetrics(m))
	ctx := context.Background()

	_, err := exec.Run(ctx, testRaster(10, 10), mustParse(t, `{"flip": null, "unknown": 1}`))
	require.NoError(t, err)
	_, err = exec.Run(ctx, testRaster(10, 10), mustParse(t, `{"posterize": 0}`))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(statusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues(statusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepsTotal.WithLabelValues("flip", statusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepsTotal.WithLabelValues("posterize", statusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedTotal))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.pixelsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRuns))
}

func TestNewExecutor_NilRegistry(t *testing.T) {
	assert.Panics(t, func() { NewExecutor(nil) })
}

type panicOnOpaque struct{ *image.NRGBA }

func (panicOnOpaque) Opaque() bool { panic("opaque check failed") }

func TestRun_RecoversTransformationPanic(t *testing.T) {
	img := pix.Raster{
		Image:  panicOnOpaque{imaging.New(4, 4, color.NRGBA{A: 255})},
		Mode:   pix.ModeP,
		Format: "PNG",
	}

	_, err := NewExecutor(transform.MustDefault()).Run(context.Background(), img, mustParse(t, `{"mirror": null}`))
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr), "expected StepError, got %T: %v", err, err)
	assert.Equal(t, "mirror", stepErr.Key)
	assert.ErrorIs(t, err, ErrTransformPanic)
	assert.Contains(t, err.Error(), "opaque check failed")
}
