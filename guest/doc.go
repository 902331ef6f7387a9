// Package guest defines the guest-side texture and sampler descriptors
// produced by the register-file decoder of the emulated GPU.
//
// Types in this package describe resources as the guest sees them: physical
// addresses in the emulated machine's memory space, guest pixel formats,
// tiling, and the fetch-constant binding model shared by the vertex and
// pixel stages. They carry no host GPU state; the texres package translates
// them into host resources.
package guest
