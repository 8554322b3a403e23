// Package world owns the entity graph of a simulation: crafts, their steering
// routines and strategies, and the patrol waypoints they fly between.
//
// Every per-tick system lives here as a World method. The sim package calls
// them in a fixed order; see sim.Stages.
package world
