package archive

import (
	"fmt"
	"math"
	"time"

	"github.com/airbusgeo/godal"

	"github.com/glacier-albedo/modis-albedo-cli/internal/glacier"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// NoData is written for masked pixels.
const NoData = -9999

func init() {
	godal.RegisterAll()
}

func open(path string) (*godal.Dataset, error) {
	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("GDAL error %d: %s", code, msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return ds, nil
}

func readBand(b godal.Band, name string, shape raster.Shape) (raster.Band, error) {
	values := make([]float64, shape.Len())
	if err := b.Read(0, 0, values, shape.Width, shape.Height); err != nil {
		return raster.Band{}, fmt.Errorf("failed to read data for band %s: %w", name, err)
	}
	valid := make([]bool, len(values))
	nodata, hasNoData := b.NoData()
	for i, v := range values {
		valid[i] = !math.IsNaN(v) && !(hasNoData && v == nodata)
	}
	return raster.NewMaskedBand(name, shape, values, valid)
}

// ReadImage loads a GeoTIFF whose layers are names, in order. Layers beyond
// the file's band count are absent from the image.
func ReadImage(path, id string, acquired time.Time, names []string) (raster.Image, error) {
	ds, err := open(path)
	if err != nil {
		return raster.Image{}, err
	}
	defer ds.Close()

	st := ds.Structure()
	shape := raster.Shape{Width: st.SizeX, Height: st.SizeY}
	gt, err := ds.GeoTransform()
	if err != nil {
		return raster.Image{}, fmt.Errorf("failed to get GeoTransform of %s: %w", path, err)
	}

	bands := ds.Bands()
	var out []raster.Band
	for i, name := range names {
		if i >= len(bands) {
			break
		}
		b, err := readBand(bands[i], name, shape)
		if err != nil {
			return raster.Image{}, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, b)
	}
	return raster.NewImage(id, acquired, shape, raster.GeoTransform(gt), ds.Projection(), out...)
}

// Projection returns the WKT projection of a raster file.
func Projection(path string) (string, error) {
	ds, err := open(path)
	if err != nil {
		return "", err
	}
	defer ds.Close()
	return ds.Projection(), nil
}

// ReadDEM loads the first band of an elevation GeoTIFF.
func ReadDEM(path string) (raster.Band, raster.GeoTransform, error) {
	ds, err := open(path)
	if err != nil {
		return raster.Band{}, raster.GeoTransform{}, err
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < 1 {
		return raster.Band{}, raster.GeoTransform{}, fmt.Errorf("DEM %s has no bands", path)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return raster.Band{}, raster.GeoTransform{}, fmt.Errorf("failed to get GeoTransform of %s: %w", path, err)
	}
	b, err := readBand(ds.Bands()[0], "elevation", raster.Shape{Width: st.SizeX, Height: st.SizeY})
	if err != nil {
		return raster.Band{}, raster.GeoTransform{}, err
	}
	return b, raster.GeoTransform(gt), nil
}

// WriteBands writes the named bands of img as a Float64 GeoTIFF with masked
// pixels set to NoData.
func WriteBands(path string, img raster.Image, names ...string) error {
	bands := make([]raster.Band, len(names))
	for i, name := range names {
		b, err := img.Select(name)
		if err != nil {
			return err
		}
		bands[i] = b
	}

	ds, err := godal.Create(godal.GTiff, path, len(bands), godal.Float64, img.Shape.Width, img.Shape.Height)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := ds.SetGeoTransform([6]float64(img.Transform)); err != nil {
		ds.Close()
		return fmt.Errorf("failed to set GeoTransform: %w", err)
	}
	if img.Projection != "" {
		if err := ds.SetProjection(img.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set projection: %w", err)
		}
	}

	out := ds.Bands()
	for i, b := range bands {
		data := b.Values()
		for j := range data {
			if _, ok := b.Value(j); !ok {
				data[j] = NoData
			}
		}
		if err := out[i].SetNoData(NoData); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set nodata on %s: %w", b.Name, err)
		}
		if err := out[i].Write(0, 0, data, img.Shape.Width, img.Shape.Height); err != nil {
			ds.Close()
			return fmt.Errorf("failed to write band %s: %w", b.Name, err)
		}
	}
	return ds.Close()
}

// ProjectOutline reprojects a WGS84 outline into the projection given as WKT.
func ProjectOutline(o *glacier.Outline, wkt string) (*glacier.Outline, error) {
	if wkt == "" {
		return o, nil
	}
	src, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, fmt.Errorf("failed to create WGS84 spatial reference: %w", err)
	}
	defer src.Close()
	dst, err := godal.NewSpatialRefFromWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image projection: %w", err)
	}
	defer dst.Close()
	tr, err := godal.NewTransform(src, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform: %w", err)
	}
	defer tr.Close()

	return o.Transform(func(xs, ys []float64) error {
		if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
			return fmt.Errorf("transform error: %w", err)
		}
		return nil
	})
}
