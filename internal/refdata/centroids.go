package refdata

import "strings"

// stateCentroids are approximate centroids for Nigeria's 36 states and
// the FCT, used to geocode events whose extraction carried no
// coordinates. [lat, lon].
var stateCentroids = map[string][2]float64{
	"abia":        {5.45, 7.52},
	"adamawa":     {9.33, 12.40},
	"akwa ibom":   {4.91, 7.85},
	"anambra":     {6.22, 6.94},
	"bauchi":      {10.78, 9.99},
	"bayelsa":     {4.77, 6.07},
	"benue":       {7.34, 8.77},
	"borno":       {11.88, 13.15},
	"cross river": {5.87, 8.60},
	"delta":       {5.70, 5.93},
	"ebonyi":      {6.27, 8.07},
	"edo":         {6.63, 5.93},
	"ekiti":       {7.72, 5.31},
	"enugu":       {6.54, 7.51},
	"fct":         {8.84, 7.18},
	"gombe":       {10.36, 11.16},
	"imo":         {5.57, 7.06},
	"jigawa":      {12.23, 9.56},
	"kaduna":      {10.38, 7.71},
	"kano":        {11.89, 8.54},
	"katsina":     {12.38, 7.63},
	"kebbi":       {11.50, 4.20},
	"kogi":        {7.73, 6.69},
	"kwara":       {8.97, 4.54},
	"lagos":       {6.52, 3.38},
	"nasarawa":    {8.54, 8.32},
	"niger":       {9.93, 5.60},
	"ogun":        {6.98, 3.42},
	"ondo":        {6.91, 4.83},
	"osun":        {7.56, 4.52},
	"oyo":         {8.16, 3.61},
	"plateau":     {9.22, 9.52},
	"rivers":      {4.84, 6.91},
	"sokoto":      {13.05, 5.24},
	"taraba":      {7.99, 10.77},
	"yobe":        {12.29, 11.44},
	"zamfara":     {12.12, 6.22},
}

// StateCentroid returns the approximate centroid for a state.
// Recognizes "FCT", "Abuja", and "Federal Capital Territory" as the FCT.
func StateCentroid(state string) (lat, lon float64, ok bool) {
	key := strings.ToLower(strings.TrimSpace(state))
	switch key {
	case "abuja", "federal capital territory":
		key = "fct"
	}
	c, ok := stateCentroids[key]
	if !ok {
		return 0, 0, false
	}
	return c[0], c[1], true
}
