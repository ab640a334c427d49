// Package ir defines the intermediate representation the glue-shader
// generators emit.
//
// The IR is a small SSA form shaped after the AMDGPU compilation model:
// functions carry a hardware calling convention, arguments can be marked
// as passed in scalar registers, and unresolved operations are expressed
// as calls to named declarations that later pipeline stages lower to
// machine code. Generators build instructions through a Builder with an
// explicit insertion point and hand the finished Module to the rest of
// the compiler toolchain for register allocation and final emission.
package ir
