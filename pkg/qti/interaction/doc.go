// Package interaction enumerates the interactions of an item body and
// answers the questions a delivery host asks about them: which responses
// are expected, how many are answered, whether the attempt may be
// submitted and whether candidate responses satisfy the declared
// constraints.
package interaction
