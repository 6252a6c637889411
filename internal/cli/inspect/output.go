package inspect

import (
	"os"

	"github.com/coral-mesh/declsite/internal/cli/helpers"
	"github.com/coral-mesh/declsite/internal/safe"
)

// removeOnError deletes f when *errp is set, so failed commands leave no
// partial output behind. Defer it before the deferred close.
func removeOnError(errp *error, f *os.File, env *helpers.Env) {
	if *errp != nil {
		safe.RemoveFile(f, env.Logger)
	}
}
