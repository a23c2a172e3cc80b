package camera

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// serializationVersion tags the persisted camera layout. Loading anything
// newer than this fails fast rather than guessing at unknown fields.
const serializationVersion = 1

type distortionJSON struct {
	Model      DistortionType `json:"model"`
	Parameters []float64      `json:"parameters"`
}

// pinholeCameraJSON is the persisted field order: version, fu, fv, cu, cv,
// ru, rv, distortion.
type pinholeCameraJSON struct {
	Version    int            `json:"version"`
	Fu         float64        `json:"fu"`
	Fv         float64        `json:"fv"`
	Cu         float64        `json:"cu"`
	Cv         float64        `json:"cv"`
	Ru         int            `json:"ru"`
	Rv         int            `json:"rv"`
	Distortion distortionJSON `json:"distortion"`
}

// MarshalJSON writes the camera in the versioned field order.
func (cam *PinholeCamera) MarshalJSON() ([]byte, error) {
	return json.Marshal(pinholeCameraJSON{
		Version: serializationVersion,
		Fu:      cam.fu,
		Fv:      cam.fv,
		Cu:      cam.cu,
		Cv:      cam.cv,
		Ru:      cam.ru,
		Rv:      cam.rv,
		Distortion: distortionJSON{
			Model:      cam.distortion.ModelType(),
			Parameters: cam.distortion.Parameters(),
		},
	})
}

// UnmarshalJSON reads a versioned camera, rejecting versions newer than the
// supported maximum, and refreshes the cached reciprocals.
func (cam *PinholeCamera) UnmarshalJSON(data []byte) error {
	var stored pinholeCameraJSON
	if err := json.Unmarshal(data, &stored); err != nil {
		return errors.Wrap(err, "error parsing pinhole camera JSON")
	}
	if stored.Version > serializationVersion {
		return errors.Errorf("unsupported serialization version %d, max supported is %d",
			stored.Version, serializationVersion)
	}
	distortion, err := NewDistortion(stored.Distortion.Model, stored.Distortion.Parameters)
	if err != nil {
		return err
	}
	cam.fu, cam.fv = stored.Fu, stored.Fv
	cam.cu, cam.cv = stored.Cu, stored.Cv
	cam.ru, cam.rv = stored.Ru, stored.Rv
	cam.distortion = distortion
	cam.updateTemporaries()
	return nil
}

// NewPinholeCameraFromJSONFile takes in a file path to a JSON and turns it
// into a PinholeCamera.
func NewPinholeCameraFromJSONFile(jsonPath string) (*PinholeCamera, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	cam := &PinholeCamera{}
	if err := json.Unmarshal(byteValue, cam); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return cam, nil
}
