// Package engine turns a craft's desired velocities into bounded thrust.
//
// Each tick runs SyncVelocities, DriveLinear, DriveAngular and finally Flames,
// which hands world-space force and torque to the physics backend.
package engine
