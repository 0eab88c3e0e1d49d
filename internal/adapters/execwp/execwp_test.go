package execwp

import (
	"reflect"
	"testing"
)

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "single csv line",
			in:   "wp_options,wp_posts,wp_users\n",
			want: []string{"wp_options", "wp_posts", "wp_users"},
		},
		{
			name: "one per line",
			in:   "wp_options\nwp_posts\nwp_users\n",
			want: []string{"wp_options", "wp_posts", "wp_users"},
		},
		{
			name: "blank lines and spaces",
			in:   " wp_options , wp_posts \n\n",
			want: []string{"wp_options", "wp_posts"},
		},
		{
			name: "empty output",
			in:   "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTableList(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTableList(%q) = %v, expected %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCommandFlags(t *testing.T) {
	c := New(WithWPPath("/usr/local/bin/wp"), WithAllowRoot())
	cmd := c.command("/var/www/html", "db", "export", "/tmp/dump.sql")

	if cmd.Path != "/usr/local/bin/wp" && cmd.Args[0] != "/usr/local/bin/wp" {
		t.Errorf("wp path not applied: %v", cmd.Args)
	}

	want := map[string]bool{
		"--path=/var/www/html": false,
		"--skip-plugins":       false,
		"--skip-themes":        false,
		"--allow-root":         false,
	}
	for _, arg := range cmd.Args {
		if _, ok := want[arg]; ok {
			want[arg] = true
		}
	}
	for flag, seen := range want {
		if !seen {
			t.Errorf("missing flag %s in %v", flag, cmd.Args)
		}
	}
}
