package obfuscate

import "fmt"

// selfDefendingGuard hangs when the compacted output has been reformatted. It relies on
// the output being compact, so Native forces whitespace removal when it is enabled.
func selfDefendingGuard(names *nameGenerator) string {
	probe := names.next()
	return fmt.Sprintf(`(function(){var %[1]s=function(){return"dev"};if(%[1]s["toString"]()["indexOf"]("\n")!==-1){for(;;){}}})();`, probe)
}
