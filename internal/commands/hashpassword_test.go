package commands

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klabast/wb-services/admission-board/internal/app"
)

func TestCheckCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		confirm  string
		wantErr  bool
	}{
		{"Valid", "admin", "LongEnoughPass1", "LongEnoughPass1", false},
		{"Empty username", "", "LongEnoughPass1", "LongEnoughPass1", true},
		{"Colon in username", "ad:min", "LongEnoughPass1", "LongEnoughPass1", true},
		{"Empty password", "admin", "", "", true},
		{"Short password", "admin", "short", "short", true},
		{"Mismatch", "admin", "LongEnoughPass1", "LongEnoughPass2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkCredentials(tt.username, tt.password, tt.confirm)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrompterUnmasked(t *testing.T) {
	var out bytes.Buffer
	p := prompter{in: bufio.NewReader(strings.NewReader("admin\nsecret-pass\nlast")), out: &out, unmasked: true}

	for _, want := range []string{"admin", "secret-pass", "last"} {
		got, err := p.secret("> ")
		if err != nil {
			t.Fatalf("secret() failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
	if _, err := p.line("> "); err == nil {
		t.Error("Expected EOF after input is exhausted")
	}
	if !strings.Contains(out.String(), "> ") {
		t.Error("Prompt should be written")
	}
}

func TestWriteAuthFileConfirmsOverwrite(t *testing.T) {
	authFile := filepath.Join(t.TempDir(), "auth.secret")
	if err := app.CreateAuthFile(authFile, "olduser", "OldPassword123456", false); err != nil {
		t.Fatal(err)
	}

	piped := func(input string) prompter {
		return prompter{in: bufio.NewReader(strings.NewReader(input)), out: io.Discard, unmasked: true}
	}

	err := writeAuthFile(piped("admin\nLongEnoughPass1\nLongEnoughPass1\nn\n"), authFile, false)
	if err == nil {
		t.Fatal("Declining the overwrite should abort")
	}
	content, _ := os.ReadFile(authFile)
	if !strings.HasPrefix(string(content), "olduser:") {
		t.Error("Declined overwrite must keep the existing file")
	}

	if err := writeAuthFile(piped("admin\nLongEnoughPass1\nLongEnoughPass1\ny\n"), authFile, false); err != nil {
		t.Fatalf("writeAuthFile() failed: %v", err)
	}
	content, _ = os.ReadFile(authFile)
	if !strings.HasPrefix(string(content), "admin:") {
		t.Errorf("Expected file to be replaced, got %q", content)
	}
}
