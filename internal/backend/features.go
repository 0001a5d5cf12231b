package backend

import "slices"

// OptionFunc renders the build options that select one feature.
type OptionFunc func(feature string) []string

// CargoFeature selects a cargo feature: "--features <name>".
func CargoFeature(feature string) []string {
	return []string{"--features", feature}
}

// FlagFor is the command-line token that enables a declared feature.
func FlagFor(feature string) string {
	return "--" + feature
}

// Translate pulls declared feature flags out of args. For each declared
// feature, in declaration order, the first "--<feature>" token anywhere in
// args is removed and option(feature) is appended to the build options. All
// other tokens keep their relative order. args itself is left untouched.
func Translate(args, declared []string, option OptionFunc) (filtered, options []string) {
	filtered = slices.Clone(args)
	for _, feature := range declared {
		i := slices.Index(filtered, FlagFor(feature))
		if i < 0 {
			continue
		}
		filtered = slices.Delete(filtered, i, i+1)
		options = append(options, option(feature)...)
	}
	if filtered == nil {
		filtered = []string{}
	}
	return filtered, options
}
