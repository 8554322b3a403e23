// Package steering holds the routine records and the pure behaviour laws
// that turn world state into desired velocities.
//
// Linear outputs are world-space velocities in m/s. Angular outputs are
// local-space angular velocities in rad/s.
package steering
