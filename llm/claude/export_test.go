package claude

// Exports for testing.

var SystemBlocks = systemBlocks

const JSONInstruction = jsonInstruction
