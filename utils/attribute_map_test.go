package utils

import (
	"testing"

	"go.viam.com/test"
)

type sampleAttrs struct {
	Speed   float64 `json:"speed"`
	Enabled bool    `json:"enabled"`
	Name    string  `json:"name,omitempty"`
}

func TestTransformAttributeMapToStruct(t *testing.T) {
	var conf sampleAttrs
	err := TransformAttributeMapToStruct(&conf, AttributeMap{"speed": 0.5, "enabled": true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Speed, test.ShouldEqual, 0.5)
	test.That(t, conf.Enabled, test.ShouldBeTrue)

	err = TransformAttributeMapToStruct(&conf, AttributeMap{"sped": 0.5})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sped")
}

func TestAttributeMapAccessors(t *testing.T) {
	am := AttributeMap{
		"count":  float64(3),
		"point":  []interface{}{1.5, 2, -3.25},
		"broken": []interface{}{1.5, "x"},
		"nil":    nil,
	}
	test.That(t, am.Has("nil"), test.ShouldBeTrue)
	test.That(t, am.Missing("count", "absent", "nil", "other"), test.ShouldResemble, []string{"absent", "other"})

	n, err := am.Int("count", 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 3)
	n, err = am.Int("absent", 7)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 7)

	pt, err := am.Float64Slice("point")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pt, test.ShouldResemble, []float64{1.5, 2, -3.25})

	_, err = am.Float64Slice("broken")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = am.Float64Slice("absent")
	test.That(t, err, test.ShouldNotBeNil)
}
