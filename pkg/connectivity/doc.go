// Package connectivity reads connectivity documents and turns them into
// [route.PathSpec] values.
//
// A document lists neuron paths between anatomical locations:
//
//	{
//	  "id": "vagal",
//	  "paths": [
//	    {"id": "ilxtr:neuron-1", "route": [["brainstem"], "cervical", ["heart", "lung"]],
//	     "phenotypes": ["ilxtr:ParasympatheticPhenotype", "ilxtr:PreGanglionicPhenotype"]},
//	    {"id": "p2", "route": "a, (b, c)", "type": "symp", "models": "ilxtr:neuron-2"}
//	  ],
//	  "traced-paths": ["p2"],
//	  "excluded-paths": []
//	}
//
// A route is either a JSON list, whose first and last elements may be lists
// of alternative terminals, or a string of comma separated steps in which a
// parenthesised group is a terminal set.
//
// Paths that name a model id can take their label and phenotypes from a
// [Knowledge] source. No lookup protocol is defined here; [StaticKnowledge]
// reads entities from a JSON file and [CachedKnowledge] keeps lookups in a
// [cache.Cache].
package connectivity
