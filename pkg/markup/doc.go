// Package markup parses the directive language embedded in shape names.
//
// A shape name is markup when its first non-whitespace character is a dot.
// The rest of the string is a whitespace-separated list of directives, each
// either a bare NAME or NAME(PARAM, PARAM, ...):
//
//	.class(nerve) id(n12) invisible
//	.boundary children(lung)
//	.style(fill=#ccc, stroke=none) label(Left lung)
//
// Any other name is an ordinary display name and yields no directives.
//
// # Directive kinds
//
// Every known directive name maps to a [Kind] plus an accepted parameter
// count. Unknown names parse successfully into [KindUnknown] so that newer
// markup keeps loading with older builds; callers report them as warnings.
// Parameters are returned as trimmed raw strings and interpreted by the
// feature resolver.
//
// # Errors
//
// Unbalanced parentheses and stray characters are syntax errors: [Parse]
// returns an *errors.Error with code MARKUP_SYNTAX and no directives.
// Parameter-count mismatches are not syntax errors; use [Directive.ArityOK].
package markup
