package domain

import "strings"

// NormalizeContractor folds a raw contractor name into its canonical form:
// trim, collapse internal whitespace, strip stray asterisks, uppercase, then
// apply the alias table. Alias keys are matched against the folded form, so
// " Com  Ed* " and "COM ED" hit the same entry. Names without an alias are
// returned in folded form.
//
// The function is pure; the alias table is supplied by configuration.
func NormalizeContractor(name string, aliases map[string]string) string {
	folded := FoldContractorKey(name)
	if folded == "" {
		return ""
	}
	if canonical, ok := aliases[folded]; ok {
		return canonical
	}
	return folded
}

// FoldContractorKey reduces a raw name to the alias-table key form:
// asterisks removed, whitespace trimmed and collapsed, uppercased.
func FoldContractorKey(name string) string {
	name = strings.ReplaceAll(name, "*", "")
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// NormalizeAliasTable rewrites an alias table so its keys are in folded form.
// Operators write keys however they like in the YAML file; lookups always use
// the folded key.
func NormalizeAliasTable(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[FoldContractorKey(k)] = v
	}
	return out
}
