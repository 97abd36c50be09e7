package spotify

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/constants"
)

// LinkToContext turns any URI of the form "spotify:<type>:<id>" into its open.spotify.com
// link. Unlike Parse it does not restrict the type, so artist and user URIs work too.
func LinkToContext(contextURI string) string {
	splits := strings.Split(contextURI, ":")

	if len(splits) != 3 {
		log.Error().Str("contextURI", contextURI).Interface("splits", splits).Msg("Splitting context URI did not result in 3 parts.")

		return ""
	}

	return fmt.Sprintf("%s%s/%s", constants.OpenSpotifyURLPrefix, splits[1], splits[2])
}

// IDFromInput accepts a bare id as well as anything Parse understands and
// returns the id, checking the type when it can be derived from input.
func IDFromInput(input string, want ObjectType) (string, error) {
	if !strings.Contains(input, ":") && !strings.Contains(input, "/") {
		obj, err := NewObject(want, input)
		if err != nil {
			return "", err
		}

		return obj.ID, nil
	}

	obj, err := Parse(input)
	if err != nil {
		return "", err
	}

	if obj.Type != want {
		return "", fmt.Errorf("%w: expected a %s but got a %s ('%s')", apierr.ErrInvalidIdentifier, want, obj.Type, input)
	}

	return obj.ID, nil
}
