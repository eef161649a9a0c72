// Package solver finds the shortest sequence of intents that takes a level
// from its start to the goal. It is used to check that levels are beatable
// and to print reference routes.
package solver
