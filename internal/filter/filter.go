// Package filter sanitizes the argument list passed through to the
// managed tool. Only exact matches against the policy allowlist
// survive; everything else is dropped before the tool ever sees it.
package filter

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vrcproxy/ytdlp-proxy/internal/config"
)

// Apply builds the final argument list from the raw input and the
// policy. The input slices are never mutated.
//
// Tokens are scanned left to right. An exact allowlist match is kept;
// if the token immediately after it does not start with a dash it is
// treated as the flag's value, kept, and skipped so it is not
// evaluated as a flag of its own. Disallowed tokens are dropped.
// Custom args are then appended in configured order, and the cookie
// flag last when enabled. Values are never validated semantically,
// only classified by leading-dash shape.
func Apply(args []string, policy config.Policy) []string {
	log.Debugf("building tool arguments, input (%d): %v", len(args), args)

	allowed := make(map[string]struct{}, len(policy.AllowedArgs))
	for _, a := range policy.AllowedArgs {
		allowed[a] = struct{}{}
	}

	out := make([]string, 0, len(args)+len(policy.CustomArgs)+1)
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if _, ok := allowed[arg]; !ok {
			log.Debugf("removing disallowed arg: %s", arg)
			continue
		}

		log.Debugf("keeping allowed arg: %s", arg)
		out = append(out, arg)

		// The next token is this flag's value unless it looks like a
		// flag itself.
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			log.Debugf("adding arg value: %s", args[i+1])
			out = append(out, args[i+1])
			i++
		}
	}

	log.Debugf("after filtering: %d args kept", len(out))

	if len(policy.CustomArgs) > 0 {
		log.Debugf("adding %d custom args from config: %v", len(policy.CustomArgs), policy.CustomArgs)
		out = append(out, policy.CustomArgs...)
	}

	if policy.Cookies {
		cookieArg := fmt.Sprintf("--cookies-from-browser=%s", policy.CookiesBrowser)
		log.Debugf("adding cookies arg: %s", cookieArg)
		out = append(out, cookieArg)
	}

	return out
}
