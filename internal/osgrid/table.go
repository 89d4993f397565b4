package osgrid

// zoneLetters maps the 100 km square key to its two-letter prefix.
//
// The key is the decimal easting index followed by the decimal northing
// index with no padding, so "411" is easting 4, northing 11. Only the
// northern rows (northing index 10-12) produce three-character keys.
//
// This is the legacy field table, not the full Ordnance Survey grid. Key
// "21" appeared twice in the source table ("SS" and "SN"); "SS" is kept.
// "22" maps to "SH" as in the source.
var zoneLetters = map[string]string{
	"00": "SV", "10": "SW", "20": "SX", "30": "SY", "40": "SZ", "50": "TV", "60": "TW",
	"01": "SQ", "11": "SR", "21": "SS", "31": "ST", "41": "SU", "51": "TQ", "61": "TR",
	"02": "SL", "12": "SM", "32": "SO", "42": "SP", "52": "TL", "62": "TM",
	"03": "SF", "13": "SG", "22": "SH", "33": "SJ", "43": "SK", "53": "TF", "63": "TG",
	"04": "SA", "14": "SB", "24": "SC", "34": "SD", "44": "SE", "54": "TA", "64": "TB",
	"05": "NV", "15": "NW", "25": "NX", "35": "NY", "45": "NZ", "55": "OV", "65": "OW",
	"06": "NQ", "16": "NR", "26": "NS", "36": "NT", "46": "NU", "56": "OQ", "66": "OR",
	"07": "NL", "17": "NM", "27": "NN", "37": "NO", "47": "NP", "57": "OL", "67": "OM",
	"08": "NF", "18": "NG", "28": "NH", "38": "NJ", "48": "NK", "58": "OF", "68": "OG",
	"09": "NA", "19": "NB", "29": "NC", "39": "ND", "49": "NE", "59": "OA", "69": "OB",
	"010": "HV", "110": "HW", "210": "HX", "310": "HY", "410": "HZ", "510": "IV", "610": "IW",
	"011": "HQ", "111": "HR", "211": "HS", "311": "HT", "411": "HU", "511": "IQ", "611": "IR",
	"012": "HL", "112": "HM", "212": "HN", "312": "HO", "412": "HP", "512": "IL", "612": "IM",
}

// Lookup returns the zone letters for a square key.
func Lookup(key string) (string, bool) {
	letters, ok := zoneLetters[key]
	return letters, ok
}
