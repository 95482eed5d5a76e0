package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"

	"github.com/glacier-albedo/modis-albedo-cli/internal/modis"
	"github.com/glacier-albedo/modis-albedo-cli/internal/raster"
)

// Scene is one daily product tile on local disk.
type Scene struct {
	Product modis.Product
	Date    time.Time
	Path    string
}

func (s Scene) Name() string {
	return fmt.Sprintf("%s_%s", s.Product, s.Date.Format(time.DateOnly))
}

// Store keeps downloaded tiles under Root/images/<product>/.
type Store struct {
	Root    string
	Fetcher Fetcher
	Ledger  *Ledger
	Bound   orb.Bound
	Scale   float64
}

// NewStore opens the store at root. A nil fetcher restricts it to tiles already on disk.
func NewStore(root string, f Fetcher, bound orb.Bound, scale float64) (*Store, error) {
	ledger, err := OpenLedger(filepath.Join(root, "images", "invalid_images.json"))
	if err != nil {
		return nil, err
	}
	return &Store{Root: root, Fetcher: f, Ledger: ledger, Bound: bound, Scale: scale}, nil
}

func (s *Store) path(sc Scene) string {
	return filepath.Join(s.Root, "images", string(sc.Product), sc.Name()+".tif")
}

// Scenes lists the product's tiles accepted by filter, downloading missing
// ones. Days the archive has no tile for are recorded in the ledger.
func (s *Store) Scenes(ctx context.Context, product modis.Product, filter TimeFilter) ([]Scene, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.Root, "images", string(product))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var scenes []Scene
	for _, date := range filter.Dates() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sc := Scene{Product: product, Date: date}
		sc.Path = s.path(sc)
		if s.Ledger.Contains(sc.Name()) {
			continue
		}
		if _, err := os.Stat(sc.Path); err == nil {
			scenes = append(scenes, sc)
			continue
		}
		if s.Fetcher == nil {
			continue
		}

		data, err := s.Fetcher.Fetch(ctx, Request{
			Product: product,
			Date:    date,
			Bound:   s.Bound,
			Bands:   modis.Bands(product),
			Scale:   s.Scale,
		})
		if errors.Is(err, ErrImageNotFound) {
			if err := s.Ledger.Add(sc.Name()); err != nil {
				log.Printf("failed to update ledger: %v", err)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error requesting %s: %w", sc.Name(), err)
		}
		if err := os.WriteFile(sc.Path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write image file: %w", err)
		}
		scenes = append(scenes, sc)
	}
	return scenes, nil
}

// Load reads a scene's GeoTIFF.
func (s *Store) Load(sc Scene) (raster.Image, error) {
	return ReadImage(sc.Path, sc.Name(), sc.Date, modis.Bands(sc.Product))
}

// MarkInvalid records a scene without usable pixels and removes its file.
func (s *Store) MarkInvalid(sc Scene) error {
	if err := s.Ledger.Add(sc.Name()); err != nil {
		return err
	}
	if err := os.Remove(sc.Path); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to delete image file %s: %v", sc.Path, err)
	}
	return nil
}
