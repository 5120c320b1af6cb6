package viewer

import (
	"reflect"
	"testing"
)

func TestOpenCommand(t *testing.T) {
	testCases := []struct {
		goos     string
		wantName string
		wantArgs []string
	}{
		{"linux", "xdg-open", []string{"/tmp/a.pdf"}},
		{"darwin", "open", []string{"/tmp/a.pdf"}},
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", "/tmp/a.pdf"}},
	}
	for _, tc := range testCases {
		name, args := openCommand(tc.goos, "/tmp/a.pdf")
		if name != tc.wantName || !reflect.DeepEqual(args, tc.wantArgs) {
			t.Fatalf("openCommand(%q) = %s %v, want %s %v", tc.goos, name, args, tc.wantName, tc.wantArgs)
		}
	}
}
