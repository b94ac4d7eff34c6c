package utils

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genPoint() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
	).Map(func(vals []interface{}) Point {
		return Point{X: vals[0].(float64), Y: vals[1].(float64)}
	})
}

func genPolygon(size int) gopter.Gen {
	return gen.SliceOfN(size, genPoint())
}

func TestApproximatePolygon_OutputNonIncreasing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("approximation never adds points", prop.ForAll(
		func(points []Point, epsilon float64) bool {
			return len(ApproximatePolygon(points, epsilon, true)) <= len(points)
		},
		genPolygon(12),
		gen.Float64Range(0.1, 10.0),
	))

	properties.TestingRun(t)
}

func TestApproximatePolygon_KeepsStartPoint(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("closed approximation starts at the first input point", prop.ForAll(
		func(points []Point, epsilon float64) bool {
			out := ApproximatePolygon(points, epsilon, true)
			return len(out) > 0 && out[0] == points[0]
		},
		genPolygon(10),
		gen.Float64Range(0.1, 10.0),
	))

	properties.TestingRun(t)
}

func TestConvexHull_Idempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hull of a hull is unchanged", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) > len(points) {
				return false
			}
			again := ConvexHull(hull)
			return len(again) == len(hull)
		},
		genPolygon(15),
	))

	properties.TestingRun(t)
}

func TestArcLength_ClosedNotShorter(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("closing a polyline never shortens it", prop.ForAll(
		func(points []Point) bool {
			return ArcLength(points, true) >= ArcLength(points, false)
		},
		genPolygon(8),
	))

	properties.TestingRun(t)
}
