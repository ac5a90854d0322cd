// Package hough finds a fixed-radius circle in laser profile data as a Viam vision service
package hough

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/vision"
	vis "go.viam.com/rdk/vision"
	"go.viam.com/rdk/vision/classification"
	objdet "go.viam.com/rdk/vision/objectdetection"
	"go.viam.com/rdk/vision/viscapture"
)

const (
	ModelName = "profile-hough"
)

var (
	// Here is where we define your new model's colon-delimited-triplet (viam:circle-detector:profile-hough)
	Model            = resource.NewModel("viam", "circle-detector", ModelName)
	errUnimplemented = errors.New("unimplemented")
)

func init() {
	resource.RegisterService(vision.API, Model, resource.Registration[vision.Service, *CircleFinderConfig]{
		Constructor: newCircleFinder,
	})
}

// CircleFinderConfig names the camera supplying profile frames and describes
// the circle to look for. Radius and the search bounds are in 1/1000 inches.
type CircleFinderConfig struct {
	CameraName string `json:"camera_name"`

	Radius int         `json:"radius"`
	Search Constraints `json:"search"`

	// frame-to-profile conversion
	MilsPerPixel  float64 `json:"mils_per_pixel,omitempty"`
	OriginX       int     `json:"origin_x,omitempty"`
	OriginY       int     `json:"origin_y,omitempty"`
	MinBrightness int     `json:"min_brightness,omitempty"`
	Crop          *image.Rectangle
	SkipBlur      bool `json:"skip_blur"`
}

// Validate validates the config and returns implicit dependencies,
func (cfg *CircleFinderConfig) Validate(path string) ([]string, error) {
	if cfg.CameraName == "" {
		return nil, fmt.Errorf(`expected "camera_name" attribute for circle finder %q`, path)
	}

	if cfg.Radius <= 0 {
		return nil, fmt.Errorf("radius needs to be set, in 1/1000 inches")
	}

	if cfg.Search.Step <= 0 {
		return nil, fmt.Errorf("search.step_size needs to be set (decrease to increase result resolution)")
	}

	if cfg.Search.XLower >= cfg.Search.XUpper {
		return nil, fmt.Errorf("search x range needs x_lower < x_upper")
	}

	if cfg.Search.YLower >= cfg.Search.YUpper {
		return nil, fmt.Errorf("search y range needs y_lower < y_upper")
	}

	if cfg.MilsPerPixel < 0 {
		return nil, fmt.Errorf("mils_per_pixel cannot be negative")
	}

	return []string{cfg.CameraName}, nil
}

func (cfg *CircleFinderConfig) setExtractionDefaults() {
	if cfg.MilsPerPixel == 0 {
		cfg.MilsPerPixel = 1
	}
	if cfg.MinBrightness == 0 {
		cfg.MinBrightness = 120 // default laser detection threshold of the scan head
	}
}

type circleFinder struct {
	resource.Named
	resource.AlwaysRebuild

	logger logging.Logger
	cam    camera.Camera
	conf   *CircleFinderConfig

	// the detector mutates its bin buffer in place; mu serializes detect
	// calls and guards history
	mu       sync.Mutex
	detector *CircleDetector
	history  *resultHistory
}

func newCircleFinder(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger) (vision.Service, error) {

	newConf, err := resource.NativeConfig[*CircleFinderConfig](conf)
	if err != nil {
		return nil, errors.Errorf("Could not assert proper config for %s", ModelName)
	}
	newConf.setExtractionDefaults()

	detector, err := NewCircleDetector(newConf.Radius, newConf.Search)
	if err != nil {
		return nil, err
	}

	f := &circleFinder{
		logger:   logger,
		conf:     newConf,
		detector: detector,
		history:  newResultHistory(historySize),
	}

	f.cam, err = camera.FromDependencies(deps, newConf.CameraName)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (f *circleFinder) DetectionsFromCamera(
	ctx context.Context,
	cameraName string,
	extra map[string]interface{},
) ([]objdet.Detection, error) {
	colorImg, err := f.getImage(ctx)
	if err != nil {
		return nil, err
	}

	return f.Detections(ctx, colorImg, extra)
}

func (f *circleFinder) Detections(ctx context.Context, img image.Image, extra map[string]interface{}) ([]objdet.Detection, error) {
	profile := extractProfile(img, f.conf)
	res := f.detect(profile)
	return f.formatDetections(res, len(profile)), nil
}

func (f *circleFinder) ClassificationsFromCamera(
	ctx context.Context,
	cameraName string,
	n int,
	extra map[string]interface{},
) (classification.Classifications, error) {
	return nil, errUnimplemented
}

func (f *circleFinder) Classifications(ctx context.Context, img image.Image,
	n int, extra map[string]interface{},
) (classification.Classifications, error) {
	return nil, errUnimplemented
}

func (f *circleFinder) GetProperties(ctx context.Context, extra map[string]interface{}) (*vision.Properties, error) {
	return &vision.Properties{
		DetectionSupported:      true,
		ClassificationSupported: false,
		ObjectPCDsSupported:     false,
	}, nil
}

func (f *circleFinder) GetObjectPointClouds(
	ctx context.Context,
	cameraName string,
	extra map[string]interface{},
) ([]*vis.Object, error) {
	return nil, errUnimplemented
}

func (f *circleFinder) CaptureAllFromCamera(
	ctx context.Context,
	cameraName string,
	opt viscapture.CaptureOptions,
	extra map[string]interface{},
) (viscapture.VisCapture, error) {

	colorImg, err := f.getImage(ctx)
	if err != nil {
		return viscapture.VisCapture{}, err
	}

	detections, err := f.Detections(ctx, colorImg, extra)
	if err != nil {
		return viscapture.VisCapture{}, err
	}

	return viscapture.VisCapture{
		Image:      colorImg,
		Detections: detections,
	}, nil
}

func (f *circleFinder) Close(ctx context.Context) error {
	return nil
}

// DoCommand runs the detector on caller-supplied profile points ("detect",
// bypassing the camera) or reads back recent results ("recent_centers").
func (f *circleFinder) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	switch cmd["command"] {
	case "detect":
		points, err := parsePoints(cmd["points"])
		if err != nil {
			return nil, err
		}
		res := f.detect(points)
		return map[string]interface{}{
			"weight": res.Weight,
			"x":      float64(res.X),
			"y":      float64(res.Y),
		}, nil
	case "recent_centers":
		f.mu.Lock()
		defer f.mu.Unlock()
		return map[string]interface{}{"centers": f.history.snapshot()}, nil
	default:
		return nil, errors.Errorf("unknown command %v", cmd["command"])
	}
}

func (f *circleFinder) getImage(ctx context.Context) (image.Image, error) {
	images, _, err := f.cam.Images(ctx)
	if err != nil {
		return nil, err
	}

	var colorImg image.Image
	for _, img := range images {
		if img.SourceName == "color" {
			colorImg = img.Image
		}
	}
	return colorImg, nil
}

func (f *circleFinder) detect(profile []Point) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := f.detector.Detect(profile)
	f.history.add(res)
	return res
}

// formatDetections maps the peak back into frame pixels. The score is the
// fraction of profile samples that voted at the peak bin, capped at 1.
func (f *circleFinder) formatDetections(res Result, sampleCount int) []objdet.Detection {
	if res.Weight == 0 || sampleCount == 0 {
		return nil
	}

	cx := f.conf.OriginX + int(float64(res.X)/f.conf.MilsPerPixel)
	cy := f.conf.OriginY - int(float64(res.Y)/f.conf.MilsPerPixel)
	r := int(float64(f.conf.Radius) / f.conf.MilsPerPixel)
	rect := image.Rectangle{
		Min: image.Point{X: cx - r, Y: cy - r},
		Max: image.Point{X: cx + r, Y: cy + r},
	}

	score := res.Weight * float64(f.conf.Search.Step) / float64(sampleCount)
	if score > 1 {
		score = 1
	}
	return []objdet.Detection{objdet.NewDetection(rect, score, "circle")}
}

func parsePoints(raw interface{}) ([]Point, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New(`expected "points" to be a list of [x, y] pairs in 1/1000 inches`)
	}

	points := make([]Point, 0, len(list))
	for _, e := range list {
		pair, ok := e.([]interface{})
		if !ok || len(pair) < 2 {
			return nil, errors.New("each point needs an x and a y value")
		}
		x, xok := pair[0].(float64)
		y, yok := pair[1].(float64)
		if !xok || !yok {
			return nil, errors.New("point coordinates need to be numeric")
		}
		points = append(points, Point{X: int(x), Y: int(y)})
	}
	return points, nil
}
