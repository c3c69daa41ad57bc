package valkey

// KEYS[1] record key, KEYS[2] user index.
// ARGV[1] record JSON, ARGV[2] ttl ms, ARGV[3] issued-at ms, ARGV[4] fingerprint.
// The index lives at least as long as its longest record.
const luaPut = `
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[4])
local ttl = redis.call('PTTL', KEYS[2])
if ttl < tonumber(ARGV[2]) then
  redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
return 'OK'
`

// KEYS[1] record key.
const luaConsume = `
local v = redis.call('GET', KEYS[1])
if not v then
  return false
end
redis.call('DEL', KEYS[1])
return v
`

// KEYS[1] user index. ARGV[1] record key prefix.
// Returns the newest live record, pruning index entries that have lapsed.
const luaNewestForUser = `
local members = redis.call('ZREVRANGE', KEYS[1], 0, -1)
for _, m in ipairs(members) do
  local v = redis.call('GET', ARGV[1] .. m)
  if v then
    return v
  end
  redis.call('ZREM', KEYS[1], m)
end
return false
`

// KEYS[1] user index. ARGV[1] record key prefix.
// Returns the number of live records removed.
const luaDeleteUser = `
local members = redis.call('ZRANGE', KEYS[1], 0, -1)
local n = 0
for _, m in ipairs(members) do
  n = n + redis.call('DEL', ARGV[1] .. m)
end
redis.call('DEL', KEYS[1])
return n
`
