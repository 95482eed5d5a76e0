package quality

import (
	"fmt"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// Summary is a histogram of the state_1km sub-fields over the valid pixels of one image.
type Summary struct {
	Total         int
	CloudState    [4]int
	Shadow        [2]int
	Cirrus        [4]int
	InternalCloud [2]int
	SnowIce       [4]int
}

func SummarizeMOD09(img raster.Image) (Summary, error) {
	qa, err := img.Select(modis.StateQA)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for _, v := range qa.ValidValues() {
		if v < 0 {
			continue
		}
		s.Total++
		s.CloudState[bits(v, cloudStateShift, 2)]++
		s.Shadow[bits(v, shadowShift, 1)]++
		s.Cirrus[bits(v, cirrusShift, 2)]++
		s.InternalCloud[bits(v, internalCloudShift, 1)]++
		s.SnowIce[bits(v, snowIceShift, 2)]++
	}
	return s, nil
}

func (s Summary) String() string {
	return fmt.Sprintf("pixels=%d cloud=%v shadow=%v cirrus=%v internal=%v snow_ice=%v",
		s.Total, s.CloudState, s.Shadow, s.Cirrus, s.InternalCloud, s.SnowIce)
}
