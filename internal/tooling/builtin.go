package tooling

import (
	"runtime"

	"notelaunch/internal/domain"
)

// goos is the platform used to pick built-in executable paths; tests override it.
var goos = runtime.GOOS

// builtinTools is the whole built-in integration table. Adding an editor is
// one more row; every row shares Descriptor.BuildArguments.
var builtinTools = []struct {
	title string
	paths map[string]string // GOOS -> executable; "" key is the fallback
}{
	{"MuseScore 4", map[string]string{
		"windows": `C:\Program Files\MuseScore 4\bin\MuseScore4.exe`,
		"darwin":  "/Applications/MuseScore 4.app/Contents/MacOS/mscore",
		"":        "/usr/bin/mscore4",
	}},
	{"MuseScore 3", map[string]string{
		"windows": `C:\Program Files\MuseScore 3\bin\MuseScore3.exe`,
		"darwin":  "/Applications/MuseScore 3.app/Contents/MacOS/mscore",
		"":        "/usr/bin/mscore3",
	}},
	// Finale and Sibelius have no Linux builds; the fallback paths are
	// placeholders users are expected to override.
	{"Finale", map[string]string{
		"windows": `C:\Program Files\MakeMusic\Finale\27\Finale.exe`,
		"darwin":  "/Applications/Finale.app/Contents/MacOS/Finale",
		"":        "/usr/local/bin/finale",
	}},
	{"Sibelius", map[string]string{
		"windows": `C:\Program Files\Avid\Sibelius\Sibelius.exe`,
		"darwin":  "/Applications/Sibelius.app/Contents/MacOS/Sibelius",
		"":        "/usr/local/bin/sibelius",
	}},
}

// Builtin returns the tool table used when no config file exists. Paths are
// typical install locations only; nothing checks that they exist.
func Builtin() []domain.Descriptor {
	out := make([]domain.Descriptor, 0, len(builtinTools))
	for _, t := range builtinTools {
		exe, ok := t.paths[goos]
		if !ok {
			exe = t.paths[""]
		}
		out = append(out, domain.Descriptor{
			Title:          t.title,
			Tooltip:        "Open the exported MusicXML in " + t.title,
			ExecutablePath: exe,
		})
	}
	return out
}
