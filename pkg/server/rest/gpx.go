package rest

import (
	"encoding/xml"
	"net/http"

	"github.com/fahmi-aa/routepack/pkg/engine/routingalgorithm"
)

type gpxTrackPoint struct {
	XMLName xml.Name `xml:"trkpt"`
	Lat     float64  `xml:"lat,attr"`
	Lon     float64  `xml:"lon,attr"`
}

type gpxTrackSegment struct {
	XMLName xml.Name        `xml:"trkseg"`
	Points  []gpxTrackPoint `xml:"trkpt"`
}

type gpxTrack struct {
	XMLName xml.Name        `xml:"trk"`
	Name    string          `xml:"name"`
	Segment gpxTrackSegment `xml:"trkseg"`
}

type gpxRoot struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Track   gpxTrack `xml:"trk"`
}

// RenderGPX writes the route geometry as a GPX track.
func RenderGPX(w http.ResponseWriter, result routingalgorithm.RoutingResult) {
	root := gpxRoot{
		Version: "1.1",
		Creator: "routepack",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Track:   gpxTrack{Name: "route"},
	}
	for _, p := range result.Geometry {
		root.Track.Segment.Points = append(root.Track.Segment.Points, gpxTrackPoint{Lat: p.Lat, Lon: p.Lon})
	}

	w.Header().Set("Content-Type", "application/gpx+xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	enc.Encode(root)
}
