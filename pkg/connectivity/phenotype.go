package connectivity

// phenotypeTypes maps neuron phenotypes to path types.
var phenotypeTypes = map[string]string{
	"ilxtr:MotorPhenotype":                          "somatic",
	"ilxtr:ParasympatheticPhenotype":                "para",
	"ilxtr:SensoryPhenotype":                        "sensory",
	"ilxtr:SympatheticPhenotype":                    "symp",
	"ilxtr:IntrinsicPhenotype":                      "lcn",
	"ilxtr:SpinalCordAscendingProjectionPhenotype":  "cns",
	"ilxtr:SpinalCordDescendingProjectionPhenotype": "cns",
	"ilxtr:EntericPhenotype":                        "enteric",
	"ilxtr:IntestinoFugalProjectionPhenotype":       "intestine",
}

var phenotypeOrder = map[string]string{
	"ilxtr:PreGanglionicPhenotype":  "pre",
	"ilxtr:PostGanglionicPhenotype": "post",
}

// PathType derives a path type from phenotypes: the first recognised kind,
// suffixed with -pre or -post for ganglionic phenotypes. It returns "" when
// no kind is recognised.
func PathType(phenotypes []string) string {
	typ := ""
	for _, p := range phenotypes {
		if t, ok := phenotypeTypes[p]; ok {
			typ = t
			break
		}
	}
	if typ == "" {
		return ""
	}
	for _, p := range phenotypes {
		if o, ok := phenotypeOrder[p]; ok {
			return typ + "-" + o
		}
	}
	return typ
}
