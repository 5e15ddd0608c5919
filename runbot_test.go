// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package runbot

import (
	"bytes"
	"os/exec"
	"testing"
)

func TestGofmt(t *testing.T) {
	var w bytes.Buffer

	gofmt := exec.Command("gofmt", "-d", ".")
	gofmt.Stdout = &w
	gofmt.Stderr = &w
	if err := gofmt.Run(); err != nil {
		t.Fatalf("gofmt failed: %v\n\n%v", err, w)
	}
	if diff := w.String(); diff != "" {
		t.Fatalf("run gofmt on these files:\n%v", diff)
	}
}
