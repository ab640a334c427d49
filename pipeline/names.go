package pipeline

// Name prefixes of the dialect calls exchanged between pipeline stages.
// Generators emit calls with these prefixes (usually mangled with a
// type or built-in suffix) and later stages lower them; the fetch glue
// also scans for the placeholder prefixes to patch them out.
const (
	// NameOutputExportGeneric prefixes generic-output export calls,
	// mangled with the value type.
	NameOutputExportGeneric = "lgc.output.export.generic."

	// NameOutputExportBuiltIn prefixes built-in-output export calls,
	// mangled with the built-in name.
	NameOutputExportBuiltIn = "lgc.output.export.builtin."

	// NameOutputExportXfb prefixes transform-feedback export calls,
	// mangled with the value type.
	NameOutputExportXfb = "lgc.output.export.xfb."

	// NameNggGsOutputImport prefixes deferred GS-output import calls
	// resolved by the primitive-shader (NGG) generation stage.
	NameNggGsOutputImport = "lgc.ngg.gs.output.import."

	// NameSpecialUserData prefixes placeholder calls requesting special
	// user-data SGPR contents (UserDataMapping values).
	NameSpecialUserData = "lgc.special.user.data."

	// NameShaderInput prefixes placeholder calls requesting hardware
	// shader inputs (ShaderInputKind values).
	NameShaderInput = "lgc.shader.input."
)

// AMDGPU intrinsics the generators emit directly.
const (
	// NameInitExecFromInput enables the lanes encoded in an SGPR field;
	// operands are the SGPR value and the field's bit offset.
	NameInitExecFromInput = "amdgcn.init.exec.from.input"

	// NameUbfe is the unsigned bitfield extract intrinsic; operands are
	// the value, the bit offset, and the field width.
	NameUbfe = "amdgcn.ubfe"

	// NameRawBufferLoad loads one element through a buffer descriptor;
	// operands are the descriptor, the byte offset, the scalar offset,
	// and the coherence flags. The name is mangled with the result type.
	NameRawBufferLoad = "amdgcn.raw.buffer.load."
)
