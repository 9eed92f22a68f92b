package trajectory

import (
	"fmt"
	"io"
	"math"
	"strings"
)

type Point struct{ X, Y float64 }

// Projection picks two state components of each row as plot coordinates.
// Row layout is [t, x, y, z, vx, vy, vz], so the synodic x-y plane is 1, 2.
func Projection(rows [][]float64, xIdx, yIdx int) []Point {
	pts := make([]Point, 0, len(rows))
	for _, row := range rows {
		if xIdx < len(row) && yIdx < len(row) {
			pts = append(pts, Point{row[xIdx], row[yIdx]})
		}
	}
	return pts
}

// TrajectoryToSVG renders a polyline of points; markers (e.g. the primaries)
// are drawn as small circles and included in the bounds.
func TrajectoryToSVG(points []Point, markers []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	// Find bounds
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, set := range [][]Point{points, markers} {
		for _, p := range set {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	project := func(p Point) (float64, float64) {
		return (p.X - minX) / rangeX * float64(width), float64(height) - (p.Y-minY)/rangeY*float64(height)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x, y := project(p)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")

	for _, m := range markers {
		x, y := project(m)
		sb.WriteString(fmt.Sprintf("<circle cx=\"%.1f\" cy=\"%.1f\" r=\"4\" fill=\"#ffaa00\"/>\n", x, y))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func WriteSVG(w io.Writer, points []Point, markers []Point, width, height int, strokeColor string) error {
	svg := TrajectoryToSVG(points, markers, width, height, strokeColor)
	if svg == "" {
		return fmt.Errorf("trajectory: need at least 2 points to draw, got %d", len(points))
	}
	_, err := io.WriteString(w, svg)
	return err
}
