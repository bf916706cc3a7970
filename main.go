package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/mapvault/tilegrid/crs"
	"github.com/mapvault/tilegrid/extent"
	"github.com/mapvault/tilegrid/reproject"
	"github.com/mapvault/tilegrid/tms"
)

const BBOX string = `bbox`
const SOURCECRS string = `sourceCrs`
const TARGETCRS string = `targetCrs`
const REGISTRYURL string = `registryUrl`
const TILEMATRIXSET string = `tilematrixset`
const EXTRALEVELS string = `extraLevels`
const MAXLEVEL string = `maxLevel`

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	app := cli.NewApp()
	app.Name = "tilegrid"
	app.Usage = "Reconciles extents and tile grids for tile cache projects"
	app.Version = versioninfo.Short()

	app.Commands = []*cli.Command{
		{
			Name:  "extent",
			Usage: "Normalize a bounding box and transform it between reference systems",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     BBOX,
					Aliases:  []string{"b"},
					Usage:    "Bounding box as minx,miny,maxx,maxy",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(BBOX)},
				},
				&cli.StringFlag{
					Name:    SOURCECRS,
					Aliases: []string{"s"},
					Usage:   "CRS the bounding box is expressed in. E.g.: EPSG:3006",
					Value:   crs.WGS84.String(),
					EnvVars: []string{strcase.ToScreamingSnake(SOURCECRS)},
				},
				&cli.StringFlag{
					Name:    TARGETCRS,
					Aliases: []string{"t"},
					Usage:   "CRS to express the bounding box in",
					Value:   crs.WGS84.String(),
					EnvVars: []string{strcase.ToScreamingSnake(TARGETCRS)},
				},
				&cli.StringFlag{
					Name:    REGISTRYURL,
					Aliases: []string{"r"},
					Usage:   "Base URL of a CRS definition lookup service for non-built-in systems",
					EnvVars: []string{strcase.ToScreamingSnake(REGISTRYURL)},
				},
			},
			Action: func(c *cli.Context) error {
				return runExtent(c, logger)
			},
		},
		{
			Name:  "grid",
			Usage: "Derive a dense tile grid from a (sparse) tile matrix set",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     TILEMATRIXSET,
					Aliases:  []string{"tms"},
					Usage:    "Path to a tile matrix set JSON file",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(TILEMATRIXSET)},
				},
				&cli.UintFlag{
					Name:    EXTRALEVELS,
					Aliases: []string{"e"},
					Usage:   "Synthetic overzoom levels to extend the grid with",
					Value:   0,
					EnvVars: []string{strcase.ToScreamingSnake(EXTRALEVELS)},
				},
				&cli.UintFlag{
					Name:    MAXLEVEL,
					Aliases: []string{"m"},
					Usage:   "Hard cap on the highest level of the grid",
					Value:   24,
					EnvVars: []string{strcase.ToScreamingSnake(MAXLEVEL)},
				},
			},
			Action: func(c *cli.Context) error {
				return runGrid(c, logger)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("tilegrid failed", zap.Error(err))
	}
}

func runExtent(c *cli.Context, logger *zap.Logger) error {
	bbox, err := parseBBoxFlag(c.String(BBOX))
	if err != nil {
		return err
	}
	source, err := crs.Parse(c.String(SOURCECRS))
	if err != nil {
		return err
	}
	target, err := crs.Parse(c.String(TARGETCRS))
	if err != nil {
		return err
	}

	reg := crs.NewRegistry(crs.Config{
		LookupURL: c.String(REGISTRYURL),
		Logger:    logger,
	})
	transformed, err := reproject.Transform(c.Context, bbox, source, target, reg)
	if err != nil {
		return err
	}
	return printJSON(struct {
		CRS    crs.ID             `json:"crs"`
		Extent extent.BoundingBox `json:"extent"`
	}{CRS: target, Extent: transformed})
}

func runGrid(c *cli.Context, logger *zap.Logger) error {
	data, err := os.ReadFile(c.String(TILEMATRIXSET))
	if err != nil {
		return fmt.Errorf("reading tile matrix set: %w", err)
	}
	set, err := tms.LoadTileMatrixSet(data)
	if err != nil {
		return fmt.Errorf("decoding tile matrix set: %w", err)
	}
	grid, err := tms.Assemble(set, c.Uint(EXTRALEVELS), c.Uint(MAXLEVEL))
	if err != nil {
		return err
	}
	logger.Info("assembled tile grid",
		zap.String("crs", grid.CRS.String()),
		zap.Int("minLevel", grid.MinLevel),
		zap.Int("maxLevel", grid.MaxLevel),
		zap.Int("highestKnownLevel", grid.HighestKnownLevel))
	return printJSON(grid)
}

func parseBBoxFlag(s string) (extent.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return extent.BoundingBox{}, fmt.Errorf("bbox needs 4 comma-separated numbers, got %q", s)
	}
	var raw [4]float64
	for i, part := range parts {
		number, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return extent.BoundingBox{}, fmt.Errorf("bbox ordinate %v: %w", i, err)
		}
		raw[i] = number
	}
	bbox, ok := extent.Normalize(raw)
	if !ok {
		return extent.BoundingBox{}, fmt.Errorf("%w: %v", extent.ErrInvalidExtent, s)
	}
	return bbox, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
