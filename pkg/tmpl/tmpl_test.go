package tmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		data    any
		want    string
		wantErr bool
	}{
		{
			name: "simple substitution",
			tmpl: "hello {{ .Name }}",
			data: map[string]string{"Name": "world"},
			want: "hello world",
		},
		{
			name: "struct data",
			tmpl: "{{ .Title }} by {{ .Proposer }}",
			data: struct {
				Title    string
				Proposer string
			}{Title: "refactor parser", Proposer: "alice"},
			want: "refactor parser by alice",
		},
		{
			name: "no variables",
			tmpl: "static string",
			data: nil,
			want: "static string",
		},
		{
			name:    "missing key errors",
			tmpl:    "{{ .Missing }}",
			data:    map[string]string{"Name": "test"},
			wantErr: true,
		},
		{
			name:    "invalid template syntax",
			tmpl:    "{{ .Name }",
			data:    map[string]string{"Name": "test"},
			wantErr: true,
		},
		{
			name: "empty value is valid",
			tmpl: "prefix{{ .Name }}suffix",
			data: map[string]string{"Name": ""},
			want: "prefixsuffix",
		},
		{
			name: "join function",
			tmpl: `{{ join .Items ", " }}`,
			data: map[string][]string{"Items": {"a", "b", "c"}},
			want: "a, b, c",
		},
		{
			name: "orDefault with empty value",
			tmpl: `{{ .Name | orDefault "unknown" }}`,
			data: map[string]string{"Name": ""},
			want: "unknown",
		},
		{
			name: "orDefault with value",
			tmpl: `{{ .Name | orDefault "unknown" }}`,
			data: map[string]string{"Name": "alice"},
			want: "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.data)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
