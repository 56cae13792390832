package extractor

// extractionPrompt asks the model for a strict-JSON intelligence record over
// the whole transcript. Attribution is the point: only artifacts authored by
// the counterparty count, never anything the responder persona said or
// invented to bait them.
const extractionPrompt = `You are a fraud-intelligence analyst. Read the conversation below between a suspected scammer (SCAMMER) and a decoy victim (USER).

Extract every forensic artifact that appears in the SCAMMER's messages ONLY. Never include anything that appears only in the USER's messages.

Categories:
- upiIds: virtual payment addresses like name@bank
- phoneNumbers: 10-digit Indian mobile numbers, without +91/0 prefixes
- bankAccounts: bank account numbers (9-18 digits)
- phishingLinks: http/https URLs
- suspiciousKeywords: manipulation words such as urgent, verify, blocked, otp, kyc, account, payment, suspend

Also decide:
- scamDetected: true if the scammer is clearly attempting fraud
- notes: one short sentence describing the scam approach

Conversation:
%s

Latest SCAMMER message:
%s

Respond with ONLY a JSON object, no markdown, in exactly this shape:
{"upiIds":[],"phoneNumbers":[],"bankAccounts":[],"phishingLinks":[],"suspiciousKeywords":[],"scamDetected":false,"notes":""}`
