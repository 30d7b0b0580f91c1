// Package reservation obtains the physical hosts and the subnet of a run.
//
// An existing running or waiting job carrying the run's label is reused.
// Otherwise the site planning is turned into free slots, the earliest slot
// able to hold the requested hosts and one subnet block is chosen, and a
// deploy job pinned to that slot is submitted. Either way the phase blocks
// until the job is running and then reads back its hosts and subnet.
package reservation
