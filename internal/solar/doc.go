// Package solar turns the sun's position into a target brightness.
//
// Elevation uses the low-precision algorithm from the Astronomical Almanac,
// good to about a degree between 1950 and 2050, which is far finer than any
// brightness step. Curve maps elevation to a percentage between a floor and
// a ceiling.
package solar
