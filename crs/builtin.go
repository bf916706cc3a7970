package crs

// Proj4 texts for the reference systems the engine meets routinely, so the
// common paths never need a network lookup. Sourced from the EPSG dataset.
var builtinProj4 = map[string]string{
	"EPSG:4326":  "+proj=longlat +datum=WGS84 +no_defs",
	"OGC:CRS84":  "+proj=longlat +datum=WGS84 +no_defs",
	"EPSG:3857":  "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +nadgrids=@null +no_defs",
	"EPSG:3006":  "+proj=utm +zone=33 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	"EPSG:25832": "+proj=utm +zone=32 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	"EPSG:25833": "+proj=utm +zone=33 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	"EPSG:32633": "+proj=utm +zone=33 +datum=WGS84 +units=m +no_defs",
}

func builtinDefinitions() map[ID]*Definition {
	defs := make(map[ID]*Definition, len(builtinProj4))
	for spelling, text := range builtinProj4 {
		id := MustParse(spelling)
		def, err := ParseProj4(id, text)
		if err != nil {
			panic(err) // built-in definitions must always parse
		}
		defs[id] = def
	}
	return defs
}
