package util

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/florianloch/sptfcore/internal/constants"
)

// RandomHex returns n random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)

	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}

// Env returns the trimmed value of envName or defaultValue if it is not set.
func Env(envName, defaultValue string) string {
	var val, exists = os.LookupEnv(envName)

	if !exists {
		log.Debug().Str("env", envName).Str("default", defaultValue).Msg("Environment variable not set, using default.")
		return defaultValue
	}

	return strings.TrimSpace(val)
}

func IsDevMode() bool {
	return strings.EqualFold(Env(constants.EnvENV, ""), "DEV")
}
