package utils

import (
	"net/url"
	"reflect"
	"testing"
)

func TestParseQueryList(t *testing.T) {
	cases := []struct {
		name  string
		query string
		key   string
		want  []string
	}{
		{"missing", "", "status", nil},
		{"single", "status=available", "status", []string{"available"}},
		{"comma separated", "status=available,reserved", "status", []string{"available", "reserved"}},
		{"repeated", "status=available&status=reserved", "status", []string{"available", "reserved"}},
		{"trims spaces", "status=available,%20reserved", "status", []string{"available", "reserved"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			q, err := url.ParseQuery(c.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got := ParseQueryList(q, c.key)
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}
