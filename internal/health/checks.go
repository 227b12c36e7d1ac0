package health

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmmcquay/sgf-renderer/internal/render"
	"github.com/dmmcquay/sgf-renderer/internal/sgf"
)

const probeGame = "(;SZ[5];B[cc];W[cd];B[dd])"

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// AssetsCheck loads the renderer assets. It is degraded when an asset
// directory is configured but some images had to be generated.
func AssetsCheck(store *render.AssetStore) Check {
	return func(ctx context.Context) error {
		assets, err := store.Get()
		if err != nil {
			return err
		}
		if store.Dir() == "" {
			return nil
		}
		var generated []string
		for name, src := range assets.Sources {
			if src == "generated" {
				generated = append(generated, name)
			}
		}
		if len(generated) == 0 {
			return nil
		}
		sort.Strings(generated)
		return Degraded(fmt.Errorf("missing from %s, using generated: %s", store.Dir(), strings.Join(generated, ", ")))
	}
}

// RenderCheck renders a small fixed game in memory.
func RenderCheck(r *render.Renderer) Check {
	return func(ctx context.Context) error {
		out, err := r.Render(ctx, render.Request{
			Notation:  probeGame,
			Theme:     render.ThemePlain,
			MoveLimit: sgf.NoLimit,
		})
		if err != nil {
			return err
		}
		if !bytes.HasPrefix(out.PNG, pngSignature) {
			return fmt.Errorf("probe render did not produce a PNG")
		}
		return nil
	}
}
