package main

import (
	"reflect"
	"testing"
)

func TestSplitCities(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "69036,69037", []string{"69036", "69037"}},
		{"surrounding whitespace", " 69036, 69037 ", []string{"69036", "69037"}},
		{"empty entries dropped", "69036,,69037,", []string{"69036", "69037"}},
		{"only separators", " , ", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := splitCities(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("splitCities(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
